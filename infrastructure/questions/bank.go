// Package questions provides the question sources for competition runs:
// a curated bank with topic and difficulty filtering, and a generator
// that asks a roster model to write fresh questions with the bank as
// fallback.
package questions

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zhmzlzn/modelarena/internal/domain"
	"github.com/zhmzlzn/modelarena/internal/ports"
)

var _ ports.QuestionSource = (*Bank)(nil)

// Bank serves questions from a fixed pool. Selection is random without
// replacement; when the pool filtered by topic and difficulty is too
// small, the filter relaxes to the whole pool, and the pool cycles if
// still short.
type Bank struct {
	pool       []domain.Question
	count      int
	topics     []string
	difficulty string
}

// BankOption customizes bank construction.
type BankOption func(*Bank)

// WithTopics filters the pool to the given topics.
func WithTopics(topics []string) BankOption {
	return func(b *Bank) { b.topics = topics }
}

// WithDifficulty filters the pool to one difficulty.
func WithDifficulty(difficulty string) BankOption {
	return func(b *Bank) { b.difficulty = difficulty }
}

// NewBank creates a bank over the built-in question pool.
func NewBank(count int, opts ...BankOption) *Bank {
	return NewBankFromPool(defaultPool(), count, opts...)
}

// NewBankFromPool creates a bank over a caller-supplied pool.
func NewBankFromPool(pool []domain.Question, count int, opts ...BankOption) *Bank {
	b := &Bank{pool: pool, count: count}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// bankFile is the YAML shape of an external question bank.
type bankFile struct {
	Questions []struct {
		Content    string `yaml:"content"`
		Topic      string `yaml:"topic"`
		Difficulty string `yaml:"difficulty"`
	} `yaml:"questions"`
}

// LoadBank creates a bank from a YAML file of questions.
func LoadBank(path string, count int, opts ...BankOption) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question bank: %w", err)
	}

	var file bankFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}

	pool := make([]domain.Question, 0, len(file.Questions))
	for i, q := range file.Questions {
		if q.Content == "" {
			continue
		}
		pool = append(pool, domain.Question{
			ID:         i + 1,
			Content:    q.Content,
			Topic:      q.Topic,
			Difficulty: q.Difficulty,
		})
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("question bank %s: %w", path, domain.ErrNoQuestions)
	}

	return NewBankFromPool(pool, count, opts...), nil
}

// Questions returns the question sequence for a run.
func (b *Bank) Questions(ctx context.Context) ([]domain.Question, error) {
	if len(b.pool) == 0 {
		return nil, domain.ErrNoQuestions
	}

	candidates := b.filtered()
	if len(candidates) < b.count {
		candidates = b.pool
	}

	picked := make([]domain.Question, len(candidates))
	copy(picked, candidates)
	rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })

	out := make([]domain.Question, 0, b.count)
	for len(out) < b.count {
		remaining := b.count - len(out)
		if remaining >= len(picked) {
			out = append(out, picked...)
		} else {
			out = append(out, picked[:remaining]...)
		}
	}
	return out, nil
}

// filtered returns the pool entries matching the topic and difficulty
// filters.
func (b *Bank) filtered() []domain.Question {
	out := make([]domain.Question, 0, len(b.pool))
	for _, q := range b.pool {
		if b.difficulty != "" && q.Difficulty != b.difficulty {
			continue
		}
		if len(b.topics) > 0 && !containsTopic(b.topics, q.Topic) {
			continue
		}
		out = append(out, q)
	}
	return out
}

func containsTopic(topics []string, topic string) bool {
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}

// defaultPool is the built-in question bank used when no external file
// is configured.
func defaultPool() []domain.Question {
	questions := []struct {
		content, topic, difficulty string
	}{
		{"Why is the sky blue during the day but red at sunset?", "science", "easy"},
		{"Explain how vaccines train the immune system.", "science", "medium"},
		{"What is the difference between nuclear fission and fusion?", "science", "medium"},
		{"Why can't anything travel faster than light in a vacuum?", "science", "hard"},
		{"How does CRISPR gene editing work at the molecular level?", "science", "hard"},
		{"What caused the fall of the Western Roman Empire?", "history", "medium"},
		{"Who was the first emperor of unified China and what did he standardize?", "history", "easy"},
		{"How did the printing press change European society?", "history", "medium"},
		{"What were the main causes of the First World War?", "history", "medium"},
		{"Compare the Athenian and Spartan political systems.", "history", "hard"},
		{"What is the difference between a compiler and an interpreter?", "technology", "easy"},
		{"Explain how public key cryptography makes secure communication possible.", "technology", "medium"},
		{"What trade-offs does a distributed database make under network partitions?", "technology", "hard"},
		{"How does a garbage collector decide which memory to reclaim?", "technology", "medium"},
		{"Why do floating point numbers lose precision?", "technology", "medium"},
		{"What is the prisoner's dilemma and why does it matter in economics?", "economics", "medium"},
		{"Explain inflation and how central banks try to control it.", "economics", "easy"},
		{"What is comparative advantage in international trade?", "economics", "medium"},
		{"What is the Ship of Theseus problem?", "philosophy", "easy"},
		{"Summarize the trolley problem and one major objection to utilitarian answers.", "philosophy", "medium"},
	}

	pool := make([]domain.Question, 0, len(questions))
	for i, q := range questions {
		pool = append(pool, domain.Question{
			ID:         i + 1,
			Content:    q.content,
			Topic:      q.topic,
			Difficulty: q.difficulty,
		})
	}
	return pool
}
