package publisher

import (
	"errors"
	"fmt"

	"frameworks/herald/internal/platform"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error codes carried by failed results.
const (
	CodeTokenNotFound    = "TOKEN_NOT_FOUND"
	CodePlatformAPIError = "PLATFORM_API_ERROR"
	CodePostFailed       = "POST_FAILED"
	CodeUnexpectedError  = "UNEXPECTED_ERROR"
)

// ErrNoPostID is returned by a client when the platform accepted the call but
// returned no post identifier.
var ErrNoPostID = errors.New("no post ID returned")

// APIError is a rejection reported by the platform itself.
type APIError struct {
	Platform   platform.Platform
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s API error (%d): %s", e.Platform.DisplayName(), e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Platform.DisplayName(), e.Message)
}

// Result is the normalised outcome of one publish attempt.
type Result struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	PostID    string `json:"post_id,omitempty"`
	Platform  string `json:"platform,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}

func success(p platform.Platform, postID, message string) Result {
	return Result{Status: StatusSuccess, Message: message, PostID: postID, Platform: p.String()}
}

func failure(p platform.Platform, code, message string) Result {
	r := Result{Status: StatusError, Message: message, ErrorCode: code}
	if p.Resolved() {
		r.Platform = p.String()
	}
	return r
}
