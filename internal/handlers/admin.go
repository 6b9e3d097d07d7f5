package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/X-spec7/book-review-backend/internal/service"
)

// RevokeToken force-revokes a refresh token by record id. Admin only;
// used to kill a leaked credential without waiting for rotation.
func (h HandlerSet) RevokeToken(c *gin.Context) {
	tokenID := c.Param("id")
	if tokenID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token id required"})
		return
	}

	if err := h.auth.AdminRevoke(c.Request.Context(), tokenID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.internalError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
