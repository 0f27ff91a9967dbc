// Package api is Herald's HTTP surface: chat submission with a progress
// stream, chat history and token management.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"frameworks/herald/internal/conversations"
	"frameworks/herald/internal/identity"
	"frameworks/herald/internal/platform"
	"frameworks/herald/internal/progress"
	"frameworks/herald/internal/taskqueue"
	"frameworks/herald/internal/tokens"
	"frameworks/herald/pkg/logging"
)

type IdentityStore interface {
	Lookup(ctx context.Context, requesterID int64) (identity.Identity, error)
	RecordUsage(ctx context.Context, requesterID int64) error
}

type TokenStore interface {
	SaveOrUpdate(ctx context.Context, requesterID int64, creds tokens.Credentials, requestedExpiry *time.Time) (tokens.Record, error)
	Update(ctx context.Context, requesterID int64, creds tokens.Credentials, expiresAt *time.Time) (tokens.Record, error)
	Get(ctx context.Context, requesterID int64) (tokens.Record, error)
	GetValid(ctx context.Context, requesterID int64, p platform.Platform) (tokens.Lookup, error)
	Clear(ctx context.Context, requesterID int64, p platform.Platform) error
}

type HistoryStore interface {
	History(ctx context.Context, requesterID int64, limit int) ([]conversations.Thread, error)
}

type Handler struct {
	Queue      taskqueue.Queue
	Channel    *progress.Channel
	Identities IdentityStore
	Tokens     TokenStore
	History    HistoryStore
	FreeLimit  int
	Logger     logging.Logger
}

// RegisterRoutes mounts every route under /api/v1 behind auth.
func RegisterRoutes(router gin.IRouter, h *Handler, auth gin.HandlerFunc) {
	v1 := router.Group("/api/v1", auth)
	v1.POST("/chat", h.Chat)
	v1.GET("/chat/history", h.ChatHistory)
	v1.GET("/tokens", h.GetTokens)
	v1.POST("/tokens", h.SaveTokens)
	v1.PATCH("/tokens", h.UpdateTokens)
	v1.GET("/tokens/:platform", h.ValidateToken)
	v1.PUT("/tokens/:platform", h.SavePlatformToken)
	v1.DELETE("/tokens/:platform", h.DeleteToken)
}

func (h *Handler) logger() logging.Logger {
	if h.Logger == nil {
		return discardLogger
	}
	return h.Logger
}

var discardLogger = logging.NewDiscardLogger()
