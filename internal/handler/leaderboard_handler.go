package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/idoneo-api/internal/handler/dto"
	"github.com/yourusername/idoneo-api/internal/middleware"
	"github.com/yourusername/idoneo-api/internal/service"
)

// LeaderboardHandler serves the per-scope standings
type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(leaderboardService *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// GetLeaderboard returns one page of a scope's standings. Public; scope
// defaults to global.
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	page, pageSize := paginationParams(c)
	scope := c.Query("scope")
	offset := (page - 1) * pageSize

	entries, total, err := h.leaderboardService.GetEntries(scope, pageSize, offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": dto.NewLeaderboardResponse(entries, offset),
		"total":   total,
		"page":    page,
		"size":    pageSize,
	})
}

// GetMyRank returns the caller's 1-based rank within a scope
func (h *LeaderboardHandler) GetMyRank(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	scope := c.Query("scope")
	rank, err := h.leaderboardService.GetUserRank(scope, userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rank": rank, "scope": scope})
}
