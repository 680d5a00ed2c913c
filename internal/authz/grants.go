package authz

// roleGrants lists the grants each role introduces on top of the roles below
// it. Effective sets are cumulative: ADMIN implies every grant RH has, RH
// implies every grant CANDIDATE has.
var roleGrants = map[Role][]Grant{
	RoleCandidate: {
		{Resource: "profile", Action: ActionRead},
		{Resource: "profile", Action: ActionUpdate},
		{Resource: "assessment", Action: ActionCreate},
		{Resource: "results", Action: ActionRead},
		{Resource: "dashboard", Action: ActionRead},
	},
	RoleRH: {
		{Resource: "candidates", Action: ActionRead},
		{Resource: "assessments", Action: ActionRead},
		{Resource: "reports", Action: ActionRead},
		{Resource: "candidates", Action: ActionManage},
		{Resource: "settings", Action: ActionRead},
	},
	RoleAdmin: {
		{Resource: "users", Action: ActionManage},
		{Resource: "system", Action: ActionManage},
		{Resource: "analytics", Action: ActionRead},
		{Resource: "backups", Action: ActionManage},
		{Resource: "admin", Action: ActionRead},
	},
	RoleSuperAdmin: {
		{Resource: ResourceAny, Action: ActionManage},
	},
}

// effectiveGrants holds the cumulative grant set per role, computed once at
// package init.
var effectiveGrants = buildEffectiveGrants()

func buildEffectiveGrants() map[Role][]Grant {
	out := make(map[Role][]Grant, len(roleOrder))
	var acc []Grant
	for _, role := range roleOrder {
		acc = append(acc, roleGrants[role]...)
		grants := make([]Grant, len(acc))
		copy(grants, acc)
		out[role] = grants
	}
	return out
}

// Allowed decides whether role may perform action on resource. It is a pure
// function of the static table: SUPER_ADMIN is allowed unconditionally,
// otherwise the role's effective grant set must contain a matching entry,
// where the wildcard resource matches any resource and manage subsumes every
// action. Unknown roles, resources and actions simply yield false.
func Allowed(role Role, resource string, action Action) bool {
	if role == RoleSuperAdmin {
		return true
	}
	for _, grant := range effectiveGrants[role] {
		if grant.Resource != resource && grant.Resource != ResourceAny {
			continue
		}
		if grant.Action == action || grant.Action == ActionManage {
			return true
		}
	}
	return false
}

// AtLeast reports whether role sits at or above min in the hierarchy. With
// the cumulative table this is equivalent to "role's effective grants are a
// superset of min's", so the rank comparison is a derived convenience rather
// than a second permission mechanism.
func AtLeast(role, min Role) bool {
	r, m := role.rank(), min.rank()
	if r < 0 || m < 0 {
		return false
	}
	return r >= m
}

// routeGrants maps gated page routes to the grant required to view them.
// Unmapped routes are allowed by default.
var routeGrants = map[string]Grant{
	"/dashboard":          {Resource: "dashboard", Action: ActionRead},
	"/settings":           {Resource: "settings", Action: ActionRead},
	"/settings/users":     {Resource: "users", Action: ActionRead},
	"/settings/backup":    {Resource: "backups", Action: ActionRead},
	"/settings/api-panel": {Resource: "system", Action: ActionRead},
	"/admin":              {Resource: "admin", Action: ActionRead},
	"/admin/dashboard":    {Resource: "admin", Action: ActionRead},
	"/admin/users":        {Resource: "users", Action: ActionManage},
	"/admin/system":       {Resource: "system", Action: ActionManage},
}

// RouteRequirement returns the grant a page route demands, if any.
func RouteRequirement(route string) (Grant, bool) {
	grant, ok := routeGrants[route]
	return grant, ok
}

// RouteAccess decides whether role may view the given page route.
func RouteAccess(role Role, route string) bool {
	grant, ok := routeGrants[route]
	if !ok {
		return true
	}
	return Allowed(role, grant.Resource, grant.Action)
}
