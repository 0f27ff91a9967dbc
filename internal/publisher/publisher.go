// Package publisher posts drafted content to social platforms and
// normalises every outcome into a Result.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"frameworks/herald/internal/platform"
	"frameworks/herald/internal/tokens"
	"frameworks/herald/pkg/clients"
	"frameworks/herald/pkg/logging"
)

// TokenSource is the validity check the publisher runs before every post.
type TokenSource interface {
	GetValid(ctx context.Context, requesterID int64, p platform.Platform) (tokens.Lookup, error)
}

// PlatformClient performs the authenticated call for one platform and
// returns the platform's post id.
type PlatformClient interface {
	PostText(ctx context.Context, token, content string) (string, error)
	PostPhoto(ctx context.Context, token, content, media string) (string, error)
	PostVideo(ctx context.Context, token, content, media string) (string, error)
}

// Request is one publish attempt.
type Request struct {
	Platform    platform.Platform
	Kind        platform.ContentKind
	RequesterID int64
	Content     string
	MediaRef    string
}

// Publisher makes exactly one attempt per Publish call; retry policy belongs
// to the caller.
type Publisher struct {
	tokens  TokenSource
	clients map[platform.Platform]PlatformClient
	logger  logging.Logger
}

func New(tokenSource TokenSource, platformClients map[platform.Platform]PlatformClient, logger logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Publisher{tokens: tokenSource, clients: platformClients, logger: logger}
}

// Publish never returns an error; every failure is a Result with an error
// code.
func (p *Publisher) Publish(ctx context.Context, req Request) Result {
	start := time.Now()
	result := p.publish(ctx, req)
	publishResults.WithLabelValues(req.Platform.String(), result.Status, result.ErrorCode).Inc()
	publishDuration.WithLabelValues(req.Platform.String()).Observe(time.Since(start).Seconds())

	entry := p.logger.WithFields(logging.Fields{
		"requester_id": req.RequesterID,
		"platform":     req.Platform.String(),
		"content_kind": req.Kind.String(),
		"status":       result.Status,
	})
	if result.Succeeded() {
		entry.WithField("post_id", result.PostID).Info("Post published")
	} else {
		entry.WithFields(logging.Fields{"error_code": result.ErrorCode, "message": result.Message}).Warn("Post not published")
	}
	return result
}

func (p *Publisher) publish(ctx context.Context, req Request) Result {
	if req.Content == "" {
		return failure(req.Platform, CodePostFailed, "no content to publish")
	}
	client, ok := p.clients[req.Platform]
	if !req.Platform.Resolved() || !ok {
		return failure(req.Platform, CodeUnexpectedError, fmt.Sprintf("unsupported platform %q", req.Platform))
	}

	name := req.Platform.DisplayName()
	lookup, err := p.tokens.GetValid(ctx, req.RequesterID, req.Platform)
	if err != nil {
		return failure(req.Platform, CodeUnexpectedError, fmt.Sprintf("Unexpected error while checking %s token: %v", name, err))
	}
	if lookup.Status != tokens.Valid {
		return failure(req.Platform, CodeTokenNotFound,
			fmt.Sprintf("%s token not found or expired. Please save your %s token first.", name, name))
	}

	kind := req.Kind
	if kind.HasMedia() && req.MediaRef == "" {
		p.logger.WithField("platform", req.Platform.String()).Warn("No media reference, posting as text")
		kind = platform.Text
	}

	var (
		postID  string
		message string
	)
	switch kind {
	case platform.Image:
		postID, err = client.PostPhoto(ctx, lookup.Token, req.Content, req.MediaRef)
		message = "Photo post created successfully"
	case platform.Video:
		postID, err = client.PostVideo(ctx, lookup.Token, req.Content, req.MediaRef)
		message = "Video post created successfully"
	default:
		postID, err = client.PostText(ctx, lookup.Token, req.Content)
		message = "Post created successfully"
	}
	if err != nil {
		return classify(req.Platform, err)
	}
	return success(req.Platform, postID, message)
}

func classify(p platform.Platform, err error) Result {
	name := p.DisplayName()
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrNoPostID):
		return failure(p, CodePostFailed, fmt.Sprintf("Failed to create %s post - no post ID returned", name))
	case errors.As(err, &apiErr):
		return failure(p, CodePlatformAPIError, apiErr.Error())
	case clients.IsBreakerOpen(err):
		return failure(p, CodeUnexpectedError, fmt.Sprintf("%s is temporarily unavailable, please try again later", name))
	default:
		return failure(p, CodeUnexpectedError, fmt.Sprintf("Unexpected error while posting to %s: %v", name, err))
	}
}
