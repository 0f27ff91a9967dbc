package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"frameworks/herald/internal/platform"
	"frameworks/herald/internal/tokens"
	"frameworks/herald/pkg/auth"
	"frameworks/herald/pkg/logging"
)

// TokenRequest is the body of POST and PATCH /tokens. Omitted fields keep
// their stored value.
type TokenRequest struct {
	Facebook  *string    `json:"facebook"`
	Instagram *string    `json:"instagram"`
	LinkedIn  *string    `json:"linkedin"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (r TokenRequest) credentials() tokens.Credentials {
	return tokens.Credentials{Facebook: r.Facebook, Instagram: r.Instagram, LinkedIn: r.LinkedIn}
}

type TokenResponse struct {
	Facebook  string    `json:"facebook,omitempty"`
	Instagram string    `json:"instagram,omitempty"`
	LinkedIn  string    `json:"linkedin,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func tokenResponse(rec tokens.Record) TokenResponse {
	return TokenResponse{
		Facebook:  rec.Facebook,
		Instagram: rec.Instagram,
		LinkedIn:  rec.LinkedIn,
		ExpiresAt: rec.ExpiresAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func (h *Handler) GetTokens(c *gin.Context) {
	requesterID, ok := auth.RequesterID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	rec, err := h.Tokens.Get(c.Request.Context(), requesterID)
	if errors.Is(err, tokens.ErrNoRecord) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no tokens saved"})
		return
	}
	if err != nil {
		h.logger().WithError(err).WithField("requester_id", requesterID).Error("Token lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tokens"})
		return
	}
	c.JSON(http.StatusOK, tokenResponse(rec))
}

// SaveTokens upserts the record. Any expires_at in the body is ignored and
// the record expires tokens.SaveTTL from now.
func (h *Handler) SaveTokens(c *gin.Context) {
	requesterID, ok := auth.RequesterID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	req, ok := bindTokens(c)
	if !ok {
		return
	}
	if req.credentials().Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one token is required"})
		return
	}
	rec, err := h.Tokens.SaveOrUpdate(c.Request.Context(), requesterID, req.credentials(), req.ExpiresAt)
	if err != nil {
		h.logger().WithError(err).WithField("requester_id", requesterID).Error("Token save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save tokens"})
		return
	}
	c.JSON(http.StatusOK, tokenResponse(rec))
}

// UpdateTokens patches an existing record and honours an explicit expiry.
func (h *Handler) UpdateTokens(c *gin.Context) {
	requesterID, ok := auth.RequesterID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	req, ok := bindTokens(c)
	if !ok {
		return
	}
	rec, err := h.Tokens.Update(c.Request.Context(), requesterID, req.credentials(), req.ExpiresAt)
	if errors.Is(err, tokens.ErrNoRecord) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no tokens saved"})
		return
	}
	if err != nil {
		h.logger().WithError(err).WithField("requester_id", requesterID).Error("Token update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update tokens"})
		return
	}
	c.JSON(http.StatusOK, tokenResponse(rec))
}

func (h *Handler) ValidateToken(c *gin.Context) {
	requesterID, ok := auth.RequesterID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	p, ok := platformParam(c)
	if !ok {
		return
	}
	lookup, err := h.Tokens.GetValid(c.Request.Context(), requesterID, p)
	if err != nil {
		h.logger().WithError(err).WithField("requester_id", requesterID).Error("Token validation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to validate token"})
		return
	}
	if lookup.Status != tokens.Valid {
		c.JSON(http.StatusOK, gin.H{
			"status":    "invalid",
			"message":   "No valid " + p.String() + " token found",
			"has_token": false,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "valid",
		"message":    "Valid " + p.String() + " token found",
		"has_token":  true,
		"expires_at": lookup.ExpiresAt,
	})
}

// PlatformTokenRequest is the body of PUT /tokens/:platform.
type PlatformTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// SavePlatformToken upserts the token for one platform, leaving the others
// as stored.
func (h *Handler) SavePlatformToken(c *gin.Context) {
	requesterID, ok := auth.RequesterID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	p, ok := platformParam(c)
	if !ok {
		return
	}
	var req PlatformTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}
	rec, err := h.Tokens.SaveOrUpdate(c.Request.Context(), requesterID, tokens.ForPlatform(p, strings.TrimSpace(req.Token)), nil)
	if err != nil {
		h.logger().WithError(err).WithFields(logging.Fields{
			"requester_id": requesterID,
			"platform":     p.String(),
		}).Error("Token save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save token"})
		return
	}
	c.JSON(http.StatusOK, tokenResponse(rec))
}

func (h *Handler) DeleteToken(c *gin.Context) {
	requesterID, ok := auth.RequesterID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	p, ok := platformParam(c)
	if !ok {
		return
	}
	err := h.Tokens.Clear(c.Request.Context(), requesterID, p)
	if errors.Is(err, tokens.ErrNoRecord) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no tokens saved"})
		return
	}
	if err != nil {
		h.logger().WithError(err).WithField("requester_id", requesterID).Error("Token delete failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": p.DisplayName() + " token removed"})
}

func bindTokens(c *gin.Context) (TokenRequest, bool) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return req, false
	}
	if req.credentials().Empty() && req.ExpiresAt == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one token is required"})
		return req, false
	}
	return req, true
}

func platformParam(c *gin.Context) (platform.Platform, bool) {
	p := platform.ParsePlatform(strings.TrimSpace(c.Param("platform")))
	if !p.Resolved() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported platform"})
		return p, false
	}
	return p, true
}
