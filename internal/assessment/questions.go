package assessment

import "github.com/spac-assessment/spac/internal/scores"

// Kind distinguishes how a question is answered.
type Kind string

const (
	// KindScale questions take a single agreement value from 1 to 5.
	KindScale Kind = "scale"
	// KindMulti questions take up to MaxSelections options.
	KindMulti Kind = "multi"
)

// Question is one item of a questionnaire step.
type Question struct {
	ID      int      `json:"id"`
	Text    string   `json:"text"`
	Kind    Kind     `json:"kind"`
	Options []string `json:"options,omitempty"`
}

// StepDefinition groups the questions shown on one step of the flow.
type StepDefinition struct {
	Step      int         `json:"step"`
	Type      scores.Type `json:"type"`
	Title     string      `json:"title"`
	Questions []Question  `json:"questions"`
}

var characteristics = []string{
	"Comunicativo",
	"Organizado",
	"Criativo",
	"Analítico",
	"Colaborativo",
	"Resiliente",
	"Proativo",
	"Detalhista",
	"Flexível",
	"Orientado a resultados",
}

// Question IDs are globally unique across steps so the answer map stays flat.
var stepDefinitions = []StepDefinition{
	{
		Step:  1,
		Type:  scores.TypePersonality,
		Title: "Perfil comportamental",
		Questions: []Question{
			{ID: 101, Text: "Sinto-me confortável ao apresentar ideias em grupo.", Kind: KindScale},
			{ID: 102, Text: "Prefiro planejar antes de agir.", Kind: KindScale},
			{ID: 103, Text: "Adapto-me facilmente a mudanças de prioridade.", Kind: KindScale},
			{ID: 104, Text: "Costumo assumir a iniciativa em novos projetos.", Kind: KindScale},
			{ID: 105, Text: "Mantenho a calma em situações de pressão.", Kind: KindScale},
		},
	},
	{
		Step:  2,
		Type:  scores.TypePersonality,
		Title: "Relacionamento e trabalho em equipe",
		Questions: []Question{
			{ID: 201, Text: "Escuto opiniões diferentes antes de tomar decisões.", Kind: KindScale},
			{ID: 202, Text: "Ofereço ajuda aos colegas mesmo sem ser solicitado.", Kind: KindScale},
			{ID: 203, Text: "Dou e recebo feedback de forma construtiva.", Kind: KindScale},
			{ID: 204, Text: "Resolvo conflitos buscando o melhor para o time.", Kind: KindScale},
			{ID: 205, Text: "Compartilho conhecimento com a equipe regularmente.", Kind: KindScale},
		},
	},
	{
		Step:  3,
		Type:  scores.TypeCompetency,
		Title: "Competências profissionais",
		Questions: []Question{
			{ID: 301, Text: "Cumpro prazos mesmo com demandas concorrentes.", Kind: KindScale},
			{ID: 302, Text: "Busco aprender novas ferramentas e métodos.", Kind: KindScale},
			{ID: 303, Text: "Analiso dados antes de propor soluções.", Kind: KindScale},
			{ID: 304, Text: "Comunico resultados de forma clara e objetiva.", Kind: KindScale},
			{ID: 305, Text: "Priorizo tarefas de acordo com o impacto no negócio.", Kind: KindScale},
		},
	},
	{
		Step:  4,
		Type:  scores.TypeFinal,
		Title: "Autoavaliação final",
		Questions: []Question{
			{ID: 401, Text: "Selecione até cinco características que melhor descrevem você.", Kind: KindMulti, Options: characteristics},
			{ID: 402, Text: "Estou satisfeito com meu desenvolvimento profissional atual.", Kind: KindScale},
			{ID: 403, Text: "Vejo-me crescendo nesta empresa nos próximos anos.", Kind: KindScale},
			{ID: 404, Text: "Recomendo meu ambiente de trabalho a outros profissionais.", Kind: KindScale},
		},
	},
}

// Steps returns the full questionnaire.
func Steps() []StepDefinition {
	return stepDefinitions
}

// StepByNumber looks up one step's definition.
func StepByNumber(n int) (StepDefinition, bool) {
	for _, def := range stepDefinitions {
		if def.Step == n {
			return def, true
		}
	}
	return StepDefinition{}, false
}
