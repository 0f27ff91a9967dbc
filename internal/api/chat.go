package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"frameworks/herald/internal/conversations"
	"frameworks/herald/internal/identity"
	"frameworks/herald/internal/progress"
	"frameworks/herald/internal/taskqueue"
	"frameworks/herald/pkg/auth"
	"frameworks/herald/pkg/logging"
)

const maxMessageLength = 4000

type ChatRequest struct {
	Message      string `json:"message"`
	CheckpointID string `json:"checkpoint_id"`
}

// ChannelID is unique per request so concurrent chats never share a stream.
func ChannelID(requesterID int64) string {
	return fmt.Sprintf("chat_%d_%s", requesterID, uuid.NewString())
}

// QueueMessage is the informational text of the initial queue_status event.
func QueueMessage(position int) string {
	return fmt.Sprintf("You are #%d in queue. Please wait...", position)
}

// Chat admits the requester, queues one agent run and streams its progress
// until the run's terminal event.
func (h *Handler) Chat(c *gin.Context) {
	requesterID, ok := auth.RequesterID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	req.CheckpointID = strings.TrimSpace(req.CheckpointID)
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if len([]rune(req.Message)) > maxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message too long"})
		return
	}

	ctx := c.Request.Context()
	log := h.logger().WithField("requester_id", requesterID)

	who, err := h.Identities.Lookup(ctx, requesterID)
	if errors.Is(err, identity.ErrUnknownRequester) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}
	if err != nil {
		log.WithError(err).Error("Identity lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	if err := identity.Admit(who, h.FreeLimit); err != nil {
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Payment required"})
		return
	}

	channelID := ChannelID(requesterID)
	stream, err := h.Channel.Subscribe(ctx, channelID)
	if err != nil {
		log.WithError(err).Error("Progress subscription failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "streaming unavailable"})
		return
	}
	defer func() { _ = stream.Close() }()

	depth, err := h.Queue.Depth(ctx)
	if err != nil {
		log.WithError(err).Warn("Queue depth unavailable")
		depth = 0
	}
	taskqueue.QueueDepth.Set(float64(depth))

	job := taskqueue.NewJob(req.Message, req.CheckpointID, requesterID, channelID)
	if err := h.Queue.Submit(ctx, job); err != nil {
		log.WithError(err).Error("Job submission failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "failed to queue request"})
		return
	}
	if err := h.Identities.RecordUsage(ctx, requesterID); err != nil {
		log.WithError(err).Warn("Failed to record usage")
	}
	log.WithFields(logging.Fields{
		"job_id":      job.ID,
		"channel_id":  channelID,
		"queue_depth": depth,
	}).Info("Chat job queued")

	var initial []progress.Event
	if depth > 0 {
		initial = append(initial, progress.QueueStatus(depth, QueueMessage(depth)))
	}
	progress.WriteSSE(c, stream, h.logger(), initial...)
}

// ChatHistory lists the requester's threads newest first.
func (h *Handler) ChatHistory(c *gin.Context) {
	requesterID, ok := auth.RequesterID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	limit := conversations.DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	threads, err := h.History.History(c.Request.Context(), requesterID, limit)
	if err != nil {
		h.logger().WithError(err).WithField("requester_id", requesterID).Error("History lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": threads})
}
