package application

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/zhmzlzn/modelarena/internal/domain"
)

// answerPromptTemplate asks a contestant to answer the round's question.
const answerPromptTemplate = `You are a contestant in a knowledge competition. Answer the following question as accurately and completely as you can. Be concise but thorough.

Question: {{.Question}}

Answer:`

// judgePromptTemplate asks the round's judge to rank contestant answers.
// The response contract mirrors what the parser expects: a JSON object
// with a rankings array ordered best first.
const judgePromptTemplate = `You are the judge of a knowledge competition round. {{len .Answers}} contestants answered the same question. Rank their answers from best to worst based on accuracy, completeness, and clarity.

Question: {{.Question}}

{{range $i, $a := .Answers}}--- Answer from {{$a.Label}} ---
{{$a.Content}}

{{end}}Respond with a JSON object in exactly this format:
{
  "rankings": [
    {"model_name": "<contestant name>", "rank": 1},
    {"model_name": "<contestant name>", "rank": 2}
  ],
  "reasoning": "<brief explanation of your ranking>"
}

Include every contestant exactly once. Rank 1 is the best answer.`

// questionPromptTemplate asks a model to generate competition questions.
const questionPromptTemplate = `Generate {{.Count}} distinct quiz questions{{if .Topics}} about the following topics: {{join .Topics ", "}}{{end}}{{if .Difficulty}} at {{.Difficulty}} difficulty{{end}}. Each question must be answerable in a short paragraph and must not require images or external documents.

Respond with a JSON array in exactly this format:
[
  {"content": "<question text>", "topic": "<topic>", "difficulty": "<easy|medium|hard>"}
]`

var (
	answerTmpl   = template.Must(template.New("answer").Parse(answerPromptTemplate))
	judgeTmpl    = template.Must(template.New("judge").Parse(judgePromptTemplate))
	questionTmpl = template.Must(template.New("question").
			Funcs(template.FuncMap{"join": strings.Join}).
			Parse(questionPromptTemplate))
)

// judgeAnswer is one contestant entry rendered into the judge prompt.
type judgeAnswer struct {
	Label   string
	Content string
}

// BuildAnswerPrompt renders the contestant prompt for a question.
func BuildAnswerPrompt(question domain.Question) (string, error) {
	var sb strings.Builder
	if err := answerTmpl.Execute(&sb, struct{ Question string }{question.Content}); err != nil {
		return "", fmt.Errorf("failed to render answer prompt: %w", err)
	}
	return sb.String(), nil
}

// BuildJudgePrompt renders the judging prompt over the successful
// contestant answers. When anonymize is set, contestants are labeled by
// position instead of name so the judge cannot play favorites.
func BuildJudgePrompt(question domain.Question, answers []domain.ContestantAnswer, anonymize bool) (string, error) {
	rendered := make([]judgeAnswer, 0, len(answers))
	for i, a := range answers {
		label := a.Model
		if anonymize {
			label = fmt.Sprintf("contestant #%d", i+1)
		}
		rendered = append(rendered, judgeAnswer{Label: label, Content: a.Content})
	}

	var sb strings.Builder
	err := judgeTmpl.Execute(&sb, struct {
		Question string
		Answers  []judgeAnswer
	}{question.Content, rendered})
	if err != nil {
		return "", fmt.Errorf("failed to render judge prompt: %w", err)
	}
	return sb.String(), nil
}

// BuildQuestionPrompt renders the question-generation prompt.
func BuildQuestionPrompt(count int, topics []string, difficulty string) (string, error) {
	var sb strings.Builder
	err := questionTmpl.Execute(&sb, struct {
		Count      int
		Topics     []string
		Difficulty string
	}{count, topics, difficulty})
	if err != nil {
		return "", fmt.Errorf("failed to render question prompt: %w", err)
	}
	return sb.String(), nil
}
