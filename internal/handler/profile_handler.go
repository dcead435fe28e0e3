package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/idoneo-api/internal/handler/dto"
	"github.com/yourusername/idoneo-api/internal/middleware"
	"github.com/yourusername/idoneo-api/internal/service"
)

// ProfileHandler serves the caller's progression: XP, level, badges
type ProfileHandler struct {
	xpService    *service.XPService
	badgeService *service.BadgeService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(xpService *service.XPService, badgeService *service.BadgeService) *ProfileHandler {
	return &ProfileHandler{xpService: xpService, badgeService: badgeService}
}

// GetXP returns the caller's XP total, level and progress within the level
func (h *ProfileHandler) GetXP(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	xp, err := h.xpService.GetUserXP(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, xp)
}

// GetBadges returns the caller's earned badges
func (h *ProfileHandler) GetBadges(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	badges, err := h.badgeService.GetUserBadges(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"badges": dto.NewBadgeListResponse(badges)})
}
