package llm

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Collect runs a completion and returns the concatenated content. onDelta,
// when non-nil, sees every fragment as it arrives.
func Collect(ctx context.Context, provider Provider, messages []Message, opts Options, onDelta func(string)) (string, error) {
	stream, err := provider.Complete(ctx, messages, opts)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var out strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out.String(), err
		}
		out.WriteString(chunk.Content)
		if onDelta != nil {
			onDelta(chunk.Content)
		}
	}
	return out.String(), nil
}
