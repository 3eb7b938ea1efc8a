package match

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

const matchReply = `{
  "is_match": true,
  "program_name": "MSc AI Fully Funded",
  "deadline": "2026-03-15",
  "official_url": "https://example.org/msc-ai",
  "match_score": 90,
  "notes": "Strong research background fit"
}`

func TestEvaluator_Evaluate_Match(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: matchReply}
	e := NewEvaluator(stub, "cv text", zap.NewNop())

	verdict := e.Evaluate(context.Background(), "page text", "https://example.org/msc-ai")
	require.NotNil(t, verdict)
	require.True(t, verdict.IsMatch)
	require.Equal(t, "MSc AI Fully Funded", verdict.ProgramName)
	require.Equal(t, "2026-03-15", verdict.Deadline)
	require.Equal(t, "https://example.org/msc-ai", verdict.OfficialURL)
	require.Equal(t, 90, verdict.MatchScore)
	require.Equal(t, "Strong research background fit", verdict.Notes)

	require.Contains(t, stub.lastPrompt, "cv text")
	require.Contains(t, stub.lastPrompt, "page text")
	require.Contains(t, stub.lastPrompt, "https://example.org/msc-ai")
}

func TestEvaluator_Evaluate_FencedReplyEqualsUnfenced(t *testing.T) {
	t.Parallel()

	plain := &stubGenerator{response: matchReply}
	fenced := &stubGenerator{response: "```json\n" + matchReply + "\n```"}

	plainVerdict := NewEvaluator(plain, "cv", zap.NewNop()).
		Evaluate(context.Background(), "page", "https://example.org/msc-ai")
	fencedVerdict := NewEvaluator(fenced, "cv", zap.NewNop()).
		Evaluate(context.Background(), "page", "https://example.org/msc-ai")

	require.NotNil(t, plainVerdict)
	require.Equal(t, plainVerdict, fencedVerdict)
}

func TestEvaluator_Evaluate_InvalidJSONIsNoMatch(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: "I think this is a great scholarship!"}
	e := NewEvaluator(stub, "cv", zap.NewNop())

	require.Nil(t, e.Evaluate(context.Background(), "page", "https://example.org"))
}

func TestEvaluator_Evaluate_RejectionIsNoMatch(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: `{"is_match": false, "reason": "PhD level only"}`}
	e := NewEvaluator(stub, "cv", zap.NewNop())

	require.Nil(t, e.Evaluate(context.Background(), "page", "https://example.org"))
}

func TestEvaluator_Evaluate_MissingProgramNameIsNoMatch(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: `{"is_match": true, "match_score": 92}`}
	e := NewEvaluator(stub, "cv", zap.NewNop())

	require.Nil(t, e.Evaluate(context.Background(), "page", "https://example.org"))
}

func TestEvaluator_Evaluate_GeneratorErrorIsNoMatch(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{err: errors.New("quota exhausted")}
	e := NewEvaluator(stub, "cv", zap.NewNop())

	require.Nil(t, e.Evaluate(context.Background(), "page", "https://example.org"))
}

func TestEvaluator_Evaluate_DefaultsAndClamps(t *testing.T) {
	t.Parallel()

	stub := &stubGenerator{response: `{"is_match": true, "program_name": "X", "match_score": 150}`}
	e := NewEvaluator(stub, "cv", zap.NewNop())

	verdict := e.Evaluate(context.Background(), "page", "https://example.org/x")
	require.NotNil(t, verdict)
	require.Equal(t, "https://example.org/x", verdict.OfficialURL)
	require.Equal(t, 100, verdict.MatchScore)
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "fence with language tag", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "surrounding whitespace", in: "  \n```json\n{\"a\":1}\n```\n ", want: `{"a":1}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, extractJSON(tc.in))
		})
	}
}

func TestParseVerdict_CoercesLooseTypes(t *testing.T) {
	t.Parallel()

	verdict, err := parseVerdict(`{"is_match": "true", "program_name": "X", "match_score": "77"}`)
	require.NoError(t, err)
	require.True(t, verdict.IsMatch)
	require.Equal(t, 77, verdict.MatchScore)
}
