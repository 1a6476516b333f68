package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/zhmzlzn/modelarena/internal/application"
	"github.com/zhmzlzn/modelarena/internal/domain"
	"github.com/zhmzlzn/modelarena/internal/ports"
)

var _ ports.QuestionSource = (*Generator)(nil)

// Generator asks a model to write the run's questions. Generation
// failures are never fatal: the generator falls back to its bank source
// so a run always gets questions.
type Generator struct {
	invoker    ports.ModelInvoker
	author     domain.ModelIdentity
	fallback   ports.QuestionSource
	logger     *slog.Logger
	count      int
	topics     []string
	difficulty string
}

// NewGenerator creates a generator that uses the author model and falls
// back to the given source.
func NewGenerator(
	invoker ports.ModelInvoker,
	author domain.ModelIdentity,
	fallback ports.QuestionSource,
	logger *slog.Logger,
	count int,
	topics []string,
	difficulty string,
) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		invoker:    invoker,
		author:     author,
		fallback:   fallback,
		logger:     logger,
		count:      count,
		topics:     topics,
		difficulty: difficulty,
	}
}

// generatedQuestion is the JSON shape the generation prompt requests.
type generatedQuestion struct {
	Content    string `json:"content"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
}

// Questions generates the question sequence, padding from the fallback
// when the model produces fewer questions than requested.
func (g *Generator) Questions(ctx context.Context) ([]domain.Question, error) {
	generated, err := g.generate(ctx)
	if err != nil {
		g.logger.Warn("question generation failed, using bank",
			"author", g.author.Name, "error", err)
		return g.fallback.Questions(ctx)
	}

	if len(generated) >= g.count {
		return generated[:g.count], nil
	}

	g.logger.Warn("question generation came up short, padding from bank",
		"author", g.author.Name, "generated", len(generated), "wanted", g.count)
	padding, err := g.fallback.Questions(ctx)
	if err != nil {
		return nil, err
	}
	for _, q := range padding {
		if len(generated) == g.count {
			break
		}
		q.ID = len(generated) + 1
		generated = append(generated, q)
	}
	return generated, nil
}

// generate runs the generation prompt and parses the response.
func (g *Generator) generate(ctx context.Context) ([]domain.Question, error) {
	prompt, err := application.BuildQuestionPrompt(g.count, g.topics, g.difficulty)
	if err != nil {
		return nil, err
	}

	response, err := g.invoker.Invoke(ctx, g.author, prompt, nil)
	if err != nil {
		return nil, err
	}

	jsonStr := extractJSONArray(response)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON array in generation response")
	}

	var items []generatedQuestion
	if err := json.Unmarshal([]byte(jsonStr), &items); err != nil {
		return nil, fmt.Errorf("failed to parse generated questions: %w", err)
	}

	out := make([]domain.Question, 0, len(items))
	for _, item := range items {
		content := strings.TrimSpace(item.Content)
		if content == "" {
			continue
		}
		out = append(out, domain.Question{
			ID:         len(out) + 1,
			Content:    content,
			Topic:      item.Topic,
			Difficulty: item.Difficulty,
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("generation response contained no usable questions")
	}
	return out, nil
}

// extractJSONArray pulls the first balanced JSON array out of a model
// response, handling markdown code blocks and surrounding prose.
func extractJSONArray(response string) string {
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "```json"); start != -1 {
		start += len("```json")
		if end := strings.Index(response[start:], "```"); end != -1 {
			return strings.TrimSpace(response[start : start+end])
		}
	}

	start := strings.IndexByte(response, '[')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escapeNext := false
	for i := start; i < len(response); i++ {
		char := response[i]
		if escapeNext {
			escapeNext = false
			continue
		}
		switch {
		case char == '\\':
			escapeNext = true
		case char == '"':
			inString = !inString
		case inString:
		case char == '[':
			depth++
		case char == ']':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}
