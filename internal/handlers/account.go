package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"public-chat/internal/auth"
	"public-chat/internal/models"
	"public-chat/internal/repositories"
	"public-chat/internal/telemetry"
)

const minPasswordLength = 8

// SessionIssuer signs session tokens.
type SessionIssuer interface {
	Issue(sessionID, userID string) (string, time.Time, error)
}

// AccountHandler manages registration and email/password sessions.
type AccountHandler struct {
	accounts repositories.AccountRepository
	issuer   SessionIssuer
	audit    *telemetry.AuditEmitter
}

// NewAccountHandler builds an AccountHandler.
func NewAccountHandler(accounts repositories.AccountRepository, issuer SessionIssuer, audit *telemetry.AuditEmitter) *AccountHandler {
	return &AccountHandler{accounts: accounts, issuer: issuer, audit: audit}
}

// Create registers a new account.
func (h *AccountHandler) Create(c *gin.Context) {
	var req struct {
		UserID   string `json:"userId" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := resolveID(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}
	if len(req.Password) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	user, err := h.accounts.CreateUser(c.Request.Context(), models.User{
		ID:           userID,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", telemetry.ActionAccountCreated, user.ID, "account created", requestIDFromContext(c), &user.ID)
	c.JSON(http.StatusCreated, user)
}

// Get returns the authenticated account.
func (h *AccountHandler) Get(c *gin.Context) {
	user, err := h.accounts.GetUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "account not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateEmailPasswordSession logs in and returns the session with its token.
func (h *AccountHandler) CreateEmailPasswordSession(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.GetUserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load account"})
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	sessionID := uuid.NewString()
	token, expires, err := h.issuer.Issue(sessionID, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue session"})
		return
	}

	session, err := h.accounts.CreateSession(c.Request.Context(), models.Session{
		ID:        sessionID,
		UserID:    user.ID,
		ExpiresAt: expires,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store session"})
		return
	}
	session.Secret = token

	h.audit.Emit(c.Request.Context(), "INFO", telemetry.ActionSessionCreated, session.ID, "session created", requestIDFromContext(c), &user.ID)
	c.JSON(http.StatusCreated, session)
}

// DeleteSession logs out. The id "current" names the calling session.
func (h *AccountHandler) DeleteSession(c *gin.Context) {
	userID := c.GetString("userID")
	sessionID := c.Param("session_id")
	if sessionID == "current" {
		sessionID = c.GetString("sessionID")
	}

	if err := h.accounts.DeleteSession(c.Request.Context(), sessionID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "session not found"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", telemetry.ActionSessionDeleted, sessionID, "session deleted", requestIDFromContext(c), &userID)
	c.Status(http.StatusNoContent)
}
