package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/idoneo-api/internal/handler/dto"
	"github.com/yourusername/idoneo-api/internal/service"
)

// SyncHandler exposes the offline queue: a manual drain trigger and the
// queue view
type SyncHandler struct {
	syncService *service.SyncService
	queue       *service.OfflineQueue
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncService *service.SyncService, queue *service.OfflineQueue) *SyncHandler {
	return &SyncHandler{syncService: syncService, queue: queue}
}

// TriggerSync runs one drain pass immediately, bypassing any failure backoff
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	stats, err := h.syncService.DrainNow()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetPending returns the staged attempts waiting for upload plus the
// permanently rejected ones, surfaced as "not saved"
func (h *SyncHandler) GetPending(c *gin.Context) {
	pending, err := h.queue.Pending()
	if err != nil {
		handleServiceError(c, err)
		return
	}
	failed, err := h.queue.Failed()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pending": dto.NewSyncQueueResponse(pending),
		"failed":  dto.NewSyncQueueResponse(failed),
	})
}
