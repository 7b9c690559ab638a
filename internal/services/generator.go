package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"courseos-backend/internal/logger"
	"courseos-backend/internal/models"
)

const (
	DefaultLessonCount = 5
	MaxLessonCount     = 20
)

// CompletionRequest is one call to the completion endpoint.
type CompletionRequest struct {
	System          string
	User            string
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// Completer returns the text of the first candidate for req.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type GeneratorConfig struct {
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// Generator turns a topic into an ordered batch of lesson atoms with a single
// completion call. There is no retry.
type Generator struct {
	completer Completer
	cfg       GeneratorConfig
	log       *logger.Logger
}

func NewGenerator(completer Completer, cfg GeneratorConfig, log *logger.Logger) *Generator {
	return &Generator{
		completer: completer,
		cfg:       cfg,
		log:       log.With("component", "generator"),
	}
}

func (g *Generator) Generate(ctx context.Context, topic string, count int) ([]models.LessonAtom, error) {
	count = normalizeCount(count)

	raw, err := g.completer.Complete(ctx, CompletionRequest{
		System:          systemPrompt,
		User:            buildLessonPrompt(topic, count),
		Model:           g.cfg.Model,
		Temperature:     g.cfg.Temperature,
		MaxOutputTokens: g.cfg.MaxOutputTokens,
	})
	if err != nil {
		g.log.Error("completion call failed", "topic", topic, "error", err)
		return nil, &GenerationFailedError{Cause: fmt.Errorf("completion call: %w", err)}
	}

	atoms, err := parseAtoms(raw, count)
	if err != nil {
		g.log.Error("completion payload rejected", "topic", topic, "error", err, "payload_len", len(raw))
		return nil, &GenerationFailedError{Cause: err}
	}

	return atoms, nil
}

func normalizeCount(count int) int {
	if count <= 0 {
		return DefaultLessonCount
	}
	if count > MaxLessonCount {
		return MaxLessonCount
	}
	return count
}

const systemPrompt = `You are an expert instructional designer who writes nano-lessons: lessons a learner finishes in 60-90 seconds.

Follow these rules for every lesson:
1. Each lesson has exactly three teaching parts: concept, explanation, action.
2. The concept is one sentence of at most 10 words stating the core idea.
3. The explanation is markdown: use **bold** for emphasis, bullet lists, and a fenced code block only when code genuinely helps.
4. The action is at most 2 lines and is something the learner can do right now.
5. The whole lesson must be consumable in 60-90 seconds.`

func buildLessonPrompt(topic string, count int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Create %d nano-lessons about: %s\n\n", count, topic))
	b.WriteString("The lessons must be progressive: each one builds on the previous, starting from the fundamentals.\n\n")
	b.WriteString("CRITICAL: Return ONLY a valid JSON array. No preamble, no markdown fences, no explanation.\n\n")
	b.WriteString(`JSON schema per lesson:
{"title": "short descriptive title", "concept": "string", "explanation": "markdown string", "action": "string"}
`)
	b.WriteString(fmt.Sprintf("\nThe array must contain exactly %d objects.\n", count))

	return b.String()
}

// fenceLanguage is the set of characters a language tag after an opening
// fence may use. A JSON payload never starts with a letter.
const fenceLanguage = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// stripFences removes a code fence the model sometimes wraps around its JSON.
// Only the outer fence goes; fences inside string values are lesson content.
func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimLeft(cleaned, fenceLanguage)
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

func parseAtoms(raw string, count int) ([]models.LessonAtom, error) {
	cleaned := stripFences(raw)

	var payload interface{}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("completion payload is not JSON: %w", err)
	}

	items, ok := payload.([]interface{})
	if !ok {
		return nil, &ResponseShapeError{Got: jsonKind(payload)}
	}

	if len(items) < count {
		return nil, fmt.Errorf("completion returned %d lessons, requested %d", len(items), count)
	}
	items = items[:count]

	atoms := make([]models.LessonAtom, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, &models.AtomValidationError{Index: i, Field: "lesson"}
		}
		atom := models.LessonAtom{
			Title:       stringField(obj, "title"),
			Concept:     stringField(obj, "concept"),
			Explanation: stringField(obj, "explanation"),
			Action:      stringField(obj, "action"),
		}
		if err := atom.Validate(i); err != nil {
			return nil, err
		}
		atoms = append(atoms, atom)
	}

	return atoms, nil
}

// stringField returns obj[key] when it is a string; any other type reads as empty.
func stringField(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]interface{}:
		return "object"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
