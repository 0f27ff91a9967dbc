package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"frameworks/herald/internal/platform"
	"frameworks/herald/pkg/llm"
	"frameworks/herald/pkg/logging"
)

const classifyTimeout = 30 * time.Second

var (
	platformPattern = regexp.MustCompile(`face.?book|\bfb\b|insta|\big\b|linked.?in|social.?media|post to|share on`)
	contentPattern  = regexp.MustCompile(`text|image|photo|picture|video`)
)

// MentionsRequirements is the deterministic half of classification: the
// request must name both a platform and a content type.
func MentionsRequirements(request string) bool {
	lower := strings.ToLower(request)
	return platformPattern.MatchString(lower) && contentPattern.MatchString(lower)
}

// Classifier resolves the target platform and content kind. Requirements
// are clear only when the pattern check passes and the model resolved both.
type Classifier struct {
	LLM    llm.Provider
	Logger logging.Logger
}

func (c *Classifier) Phase() Phase { return PhaseAnalyze }

func (c *Classifier) Run(ctx context.Context, s State) State {
	p, k, err := c.classify(ctx, s.RequestText)
	if err != nil {
		s.Platform, s.Kind, s.RequirementsClear = platform.Unresolved, platform.UnresolvedKind, false
		return s.WithError("Requirements analysis failed: %v", err)
	}
	s.Platform, s.Kind = p, k
	s.RequirementsClear = MentionsRequirements(s.RequestText) && p.Resolved() && k.Resolved()

	logger(c.Logger).WithFields(logging.Fields{
		"platform":           p.String(),
		"content_kind":       k.String(),
		"requirements_clear": s.RequirementsClear,
	}).Debug("Request classified")
	return s
}

type classification struct {
	Platform    string `json:"platform"`
	ContentType string `json:"content_type"`
}

func (c *Classifier) classify(ctx context.Context, request string) (platform.Platform, platform.ContentKind, error) {
	if c.LLM == nil {
		return platform.Unresolved, platform.UnresolvedKind, errors.New("no language model configured")
	}
	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	raw, err := llm.Collect(ctx, c.LLM, []llm.Message{
		llm.System(classifierPrompt),
		llm.User("Request: " + request),
	}, llm.Options{Temperature: llm.Temperature(0), JSON: true}, nil)
	if err != nil {
		return platform.Unresolved, platform.UnresolvedKind, err
	}

	var out classification
	if err := decodeObject(raw, &out); err != nil {
		return platform.Unresolved, platform.UnresolvedKind, err
	}
	p := platform.ParsePlatform(out.Platform)
	k := platform.ParseContentKind(out.ContentType)
	if !p.Resolved() || !k.Resolved() {
		// Half an answer is no answer.
		return platform.Unresolved, platform.UnresolvedKind, nil
	}
	return p, k, nil
}

// decodeObject parses the outermost JSON object in raw, ignoring any prose
// or code fences the model wrapped around it.
func decodeObject(raw string, v any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in model output %q", truncateRunes(raw, 200))
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func logger(l logging.Logger) logging.Logger {
	if l == nil {
		return logging.NewDiscardLogger()
	}
	return l
}
