package agent

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"frameworks/herald/internal/platform"
	"frameworks/herald/pkg/llm"
	"frameworks/herald/pkg/logging"
)

const (
	DefaultMediaDir = "generated"
	mediaTimeout    = 30 * time.Second
	mediaNotesRunes = 4000
)

// MediaStep prepares the asset reference for image and video posts. The
// reference names where the generated file will live; the model writes the
// generation prompt stored alongside it.
type MediaStep struct {
	LLM    llm.Provider
	Dir    string
	Logger logging.Logger

	now func() time.Time
}

func (m *MediaStep) Phase() Phase { return PhaseMedia }

func (m *MediaStep) Run(ctx context.Context, s State) State {
	if !s.Kind.HasMedia() {
		return s
	}
	if m.LLM == nil {
		return s.WithError("Media generation failed: no language model configured")
	}

	ctx, cancel := context.WithTimeout(ctx, mediaTimeout)
	defer cancel()
	prompt, err := llm.Collect(ctx, m.LLM, []llm.Message{
		llm.System(fmt.Sprintf(mediaPrompt, s.Kind)),
		llm.User(fmt.Sprintf(mediaRequestTemplate, s.RequestText, truncateRunes(strings.Join(s.Evidence, "\n\n"), mediaNotesRunes))),
	}, llm.Options{Temperature: llm.Temperature(0.7)}, nil)
	if err != nil {
		logger(m.Logger).WithError(err).Warn("Media prompt generation failed")
		return s.WithError("Media generation failed: %v", err)
	}

	s.MediaPrompt = strings.TrimSpace(prompt)
	s.MediaRef = m.reference(s.Kind)
	logger(m.Logger).WithField("media_ref", s.MediaRef).Info("Media reference prepared")
	return s
}

func (m *MediaStep) reference(kind platform.ContentKind) string {
	dir := m.Dir
	if dir == "" {
		dir = DefaultMediaDir
	}
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	stamp := now().Format("20060102_150405")
	if kind == platform.Video {
		return path.Join(dir, "generated_videos", stamp+".mp4")
	}
	return path.Join(dir, "generated_images", stamp+".jpg")
}
