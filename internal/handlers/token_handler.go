package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/takato23/lookescolar-sub001/internal/middleware"
	"github.com/takato23/lookescolar-sub001/internal/models"
	"github.com/takato23/lookescolar-sub001/internal/services"
)

type TokenHandler struct {
	tokens     *services.TokenService
	audit      *services.AuditService
	signer     *services.SignerService
	jwtSecret  string
	sessionTTL time.Duration
}

func NewTokenHandler(tokens *services.TokenService, audit *services.AuditService, signer *services.SignerService, jwtSecret string, sessionTTL time.Duration) *TokenHandler {
	return &TokenHandler{
		tokens:     tokens,
		audit:      audit,
		signer:     signer,
		jwtSecret:  jwtSecret,
		sessionTTL: sessionTTL,
	}
}

// IssueToken mints a new scoped access token. The response is the only copy
// of the plaintext.
func (h *TokenHandler) IssueToken(c *gin.Context) {
	var req models.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Scope.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token scope"})
		return
	}
	if req.MaxUses != nil && *req.MaxUses <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_uses must be positive"})
		return
	}

	createdBy := c.GetString(middleware.StaffSubjectKey)

	resp, err := h.tokens.Issue(c.Request.Context(), &req, createdBy)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	h.audit.Record(c.Request.Context(), c.GetString(middleware.RequestIDKey), createdBy,
		models.AuditActionTokenIssued, "ok", map[string]interface{}{
			"token":    services.MaskToken(resp.Token),
			"scope":    string(resp.Scope),
			"resource": services.MaskToken(resp.ResourceID.String()),
		})

	c.JSON(http.StatusCreated, resp)
}

// ListTokens returns the stored token records for a resource. Hashes and
// salts are excluded by the model's JSON tags.
func (h *TokenHandler) ListTokens(c *gin.Context) {
	scope := models.TokenScope(c.Query("scope"))
	if !scope.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token scope"})
		return
	}
	resourceID, err := uuid.Parse(c.Query("resource_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid resource ID"})
		return
	}

	tokens, err := h.tokens.ListByResource(c.Request.Context(), scope, resourceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// RevokeToken revokes a token by id. Revoking twice is a no-op.
func (h *TokenHandler) RevokeToken(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token ID"})
		return
	}

	actor := c.GetString(middleware.StaffSubjectKey)

	if err := h.tokens.Revoke(c.Request.Context(), id); err != nil {
		if errors.Is(err, models.ErrTokenNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Token not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke token"})
		return
	}

	h.audit.Record(c.Request.Context(), c.GetString(middleware.RequestIDKey), actor,
		models.AuditActionTokenRevoked, "ok", map[string]interface{}{
			"token_id": services.MaskToken(id.String()),
		})

	c.JSON(http.StatusOK, gin.H{"revoked": true})
}

type validateTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// ValidateToken resolves a presented plaintext. Every invalid outcome
// produces the same response body and status so callers cannot distinguish
// a wrong token from a token for another resource.
func (h *TokenHandler) ValidateToken(c *gin.Context) {
	var req validateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
		return
	}

	requestID := c.GetString(middleware.RequestIDKey)
	actor := c.ClientIP()

	result, err := h.tokens.Validate(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate token"})
		return
	}

	h.audit.Record(c.Request.Context(), requestID, actor, models.AuditActionTokenValidate,
		string(result.Reason), map[string]interface{}{
			"token": services.MaskToken(req.Token),
		})

	if !result.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false, "error": "Invalid token"})
		return
	}

	resp := gin.H{
		"valid":        true,
		"scope":        result.Scope,
		"resource_id":  result.ResourceID,
		"access_level": result.AccessLevel,
		"can_download": result.CanDownload,
	}
	if result.CanDownload {
		// Time-boxed link to the gallery this token was just validated for.
		resp["download_url"] = h.signer.SignURL("/galleries/" + result.ResourceID.String())
	}

	c.JSON(http.StatusOK, resp)
}

type createSessionRequest struct {
	Sub  string `json:"sub" binding:"required"`
	Role string `json:"role"`
}

// CreateSession mints a staff session JWT. It runs behind the master token.
func (h *TokenHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role == "" {
		req.Role = "staff"
	}

	token, err := middleware.MintStaffToken(h.jwtSecret, req.Sub, req.Role, h.sessionTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": time.Now().Add(h.sessionTTL),
	})
}
