// Package ai wraps the external scoring engine used to judge how well a
// resume fits a job description. The engine is a local binary invoked per
// evaluation; its answer is advisory and never fatal to the pipeline.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEngineNotConfigured = errors.New("scoring engine path not configured")
	ErrBadVerdict          = errors.New("scoring engine returned an unparseable verdict")
)

// Assessment is the engine's judgement of a resume/job pairing.
// Score is normalized to [0, 1].
type Assessment struct {
	Score          float64  `json:"score"`
	MatchingSkills []string `json:"matching_skills"`
	Reason         string   `json:"reason"`
}

// Oracle scores a resume against a job description.
type Oracle interface {
	Evaluate(ctx context.Context, resumeSummary, jobDescription string) (*Assessment, error)
}

// Engine invokes a local CLI binary with a prompt and parses its JSON
// verdict. The binary is expected to accept `-p <prompt>` and print the
// answer on stdout.
type Engine struct {
	Path    string
	Timeout time.Duration
}

// NewEngine builds an Engine. Timeout <= 0 falls back to 30s.
func NewEngine(path string, timeout time.Duration) (*Engine, error) {
	if path == "" {
		return nil, ErrEngineNotConfigured
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Engine{Path: path, Timeout: timeout}, nil
}

func (e *Engine) Evaluate(ctx context.Context, resumeSummary, jobDescription string) (*Assessment, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	prompt := buildPrompt(resumeSummary, jobDescription)
	cmd := exec.CommandContext(ctx, e.Path, "-p", prompt)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("scoring engine timed out after %s: %w", e.Timeout, ctx.Err())
		}
		return nil, fmt.Errorf("scoring engine failed: %w", err)
	}
	return ParseAssessment(string(out))
}

func buildPrompt(resumeSummary, jobDescription string) string {
	return fmt.Sprintf(`You evaluate how well a candidate matches a job posting.

Candidate resume summary:
%s

Job description:
%s

Respond with ONLY a JSON object in this exact shape:
{"score": <0-100>, "matching_skills": ["..."], "reason": "<one sentence>"}`,
		resumeSummary, jobDescription)
}

// ParseAssessment extracts the verdict JSON from engine output, tolerating
// markdown code fences and surrounding prose.
func ParseAssessment(raw string) (*Assessment, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return nil, fmt.Errorf("%w: no JSON object found", ErrBadVerdict)
	}

	var loose struct {
		Score          any      `json:"score"`
		MatchingSkills []string `json:"matching_skills"`
		Reason         string   `json:"reason"`
	}
	if err := json.Unmarshal([]byte(payload), &loose); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadVerdict, err)
	}

	score, ok := coerceScore(loose.Score)
	if !ok {
		return nil, fmt.Errorf("%w: score field %v", ErrBadVerdict, loose.Score)
	}

	return &Assessment{
		Score:          score,
		MatchingSkills: loose.MatchingSkills,
		Reason:         strings.TrimSpace(loose.Reason),
	}, nil
}

// extractJSON strips code fences and returns the first balanced top-level
// JSON object in the text.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = inString
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// coerceScore accepts a number or numeric string and normalizes the
// engine's 0-100 scale down to [0, 1]. Values already in [0, 1] pass
// through unchanged.
func coerceScore(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f < 0 {
		return 0, false
	}
	if f > 1 {
		f = f / 100
	}
	if f > 1 {
		return 0, false
	}
	return f, true
}
