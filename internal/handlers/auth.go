package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/X-spec7/book-review-backend/internal/middleware"
	"github.com/X-spec7/book-review-backend/internal/models"
	"github.com/X-spec7/book-review-backend/internal/ratelimit"
	"github.com/X-spec7/book-review-backend/internal/service"
)

type registerRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role" binding:"required"`
}

type registerResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (h HandlerSet) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	result, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      models.UserRole(req.Role),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailInUse):
			c.JSON(http.StatusConflict, gin.H{"error": "email already in use"})
		case errors.Is(err, service.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		default:
			h.internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, registerResponse{ID: result.ID, Email: result.Email})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	if err := h.limiter.AllowLogin(c.Request.Context(), req.Email, c.ClientIP()); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
			return
		}
		h.internalError(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials"})
			return
		}
		h.internalError(c, err)
		return
	}

	h.limiter.ResetLogin(c.Request.Context(), req.Email)
	h.setRefreshCookie(c, result.RefreshSecret)
	c.JSON(http.StatusOK, accessTokenResponse{AccessToken: result.AccessToken})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h HandlerSet) Refresh(c *gin.Context) {
	if err := h.limiter.AllowRefresh(c.Request.Context(), c.ClientIP()); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts"})
			return
		}
		h.internalError(c, err)
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), h.presentedSecret(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoRefreshToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no refresh token"})
		case errors.Is(err, service.ErrInvalidRefreshToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		default:
			h.internalError(c, err)
		}
		return
	}

	h.setRefreshCookie(c, result.RefreshSecret)
	c.JSON(http.StatusOK, accessTokenResponse{AccessToken: result.AccessToken})
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), h.presentedSecret(c)); err != nil {
		h.internalError(c, err)
		return
	}

	h.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type meResponse struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	PhoneNumber *string   `json:"phone_number"`
	Address     *string   `json:"address"`
	AvatarImage *string   `json:"avatar_image"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h HandlerSet) Me(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.internalError(c, err)
		return
	}

	// The response shape omits the password hash on purpose; never widen
	// this struct to embed models.User.
	c.JSON(http.StatusOK, meResponse{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		Role:        string(user.Role),
		PhoneNumber: user.PhoneNumber,
		Address:     user.Address,
		AvatarImage: user.AvatarImage,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	})
}

// presentedSecret pulls the opaque refresh secret from the transport:
// httpOnly cookie first, JSON body as a fallback for non-browser clients.
func (h HandlerSet) presentedSecret(c *gin.Context) string {
	if secret, err := c.Cookie(h.cfg.Security.CookieName); err == nil && secret != "" {
		return secret
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func (h HandlerSet) setRefreshCookie(c *gin.Context, secret string) {
	maxAge := int(h.cfg.Security.RefreshTokenTTL() / time.Second)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		h.cfg.Security.CookieName,
		secret,
		maxAge,
		h.cfg.Security.CookiePath,
		"",
		h.cfg.Security.CookieSecure,
		true,
	)
}

func (h HandlerSet) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		h.cfg.Security.CookieName,
		"",
		-1,
		h.cfg.Security.CookiePath,
		"",
		h.cfg.Security.CookieSecure,
		true,
	)
}

func (h HandlerSet) internalError(c *gin.Context, err error) {
	h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
}
