package match

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	_ "embed"

	"go.uber.org/zap"
)

//go:embed prompt.md
var promptTemplate string

const maxLogLen = 200

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Verdict is the model's judgment on one scholarship page.
type Verdict struct {
	IsMatch     bool
	ProgramName string
	Deadline    string
	OfficialURL string
	MatchScore  int
	Notes       string
	Reason      string
}

// Evaluator sends scraped pages plus the CV to the model and parses the
// JSON verdict. All call and parse failures degrade to a nil verdict;
// nothing escalates past this point.
type Evaluator struct {
	generator contentGenerator
	cvText    string
	logger    *zap.Logger
}

// NewEvaluator builds an Evaluator over a static CV text.
func NewEvaluator(generator contentGenerator, cvText string, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		generator: generator,
		cvText:    cvText,
		logger:    logger,
	}
}

// Evaluate judges one page. It returns nil when the page is not a
// match, when the model reply cannot be parsed, or when the call fails.
func (e *Evaluator) Evaluate(ctx context.Context, pageText, url string) *Verdict {
	prompt := buildPrompt(e.cvText, pageText, url)

	raw, err := e.generator.GenerateContent(ctx, prompt)
	if err != nil {
		e.logger.Error("gemini call failed", zap.String("url", url), zap.Error(err))
		return nil
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		e.logger.Error("failed to parse gemini response as JSON",
			zap.String("url", url),
			zap.Error(err),
			zap.String("response_preview", truncateForLog(raw, maxLogLen)),
		)
		return nil
	}

	if !verdict.IsMatch || verdict.ProgramName == "" {
		e.logger.Info("not a match", zap.String("url", url), zap.String("reason", verdict.Reason))
		return nil
	}

	if verdict.OfficialURL == "" {
		verdict.OfficialURL = url
	}
	verdict.MatchScore = clampScore(verdict.MatchScore)

	e.logger.Info("match found",
		zap.String("program_name", verdict.ProgramName),
		zap.Int("match_score", verdict.MatchScore),
	)
	return verdict
}

func buildPrompt(cvText, pageText, url string) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{CV}}", cvText)
	prompt = strings.ReplaceAll(prompt, "{{PAGE_TEXT}}", pageText)
	prompt = strings.ReplaceAll(prompt, "{{URL}}", url)
	return prompt
}

func parseVerdict(raw string) (*Verdict, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	return &Verdict{
		IsMatch:     coerceBool(data["is_match"]),
		ProgramName: coerceString(data["program_name"]),
		Deadline:    coerceString(data["deadline"]),
		OfficialURL: coerceString(data["official_url"]),
		MatchScore:  coerceInt(data["match_score"]),
		Notes:       coerceString(data["notes"]),
		Reason:      coerceString(data["reason"]),
	}, nil
}

// extractJSON strips markdown code fences, including an optional
// language tag, from around the model reply.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceInt(v any) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0
		}
		return int(f)
	default:
		return 0
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}

func truncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
