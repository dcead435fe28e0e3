package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/handler/dto"
	"github.com/yourusername/idoneo-api/internal/middleware"
	"github.com/yourusername/idoneo-api/internal/service"
)

// AttemptHandler drives the attempt lifecycle endpoints
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new attempt handler
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// StartAttemptRequest is the body of POST /api/attempts
type StartAttemptRequest struct {
	QuizID string `json:"quiz_id" binding:"required,uuid"`
}

// StartAttempt opens a new attempt for the caller
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.attemptService.Start(userID, req.QuizID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAttemptViewResponse(view))
}

// ResumeAttempt returns the caller's live session, rehydrated from the local
// snapshot if needed
func (h *AttemptHandler) ResumeAttempt(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	view, err := h.attemptService.Resume(userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAttemptViewResponse(view))
}

// SubmitAnswerRequest is the body of POST /api/attempts/:id/answers. A null
// option marks the question skipped.
type SubmitAnswerRequest struct {
	QuestionID string  `json:"question_id" binding:"required,uuid"`
	Option     *string `json:"option"`
}

// SubmitAnswer records one answer on the live attempt
func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	attemptID := c.MustGet("attemptID").(entity.AttemptID)

	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.attemptService.SubmitAnswer(userID, attemptID, req.QuestionID, req.Option)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAnswerResponse(answer))
}

// LockAnswerRequest is the body of POST /api/attempts/:id/lock
type LockAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
}

// LockAnswer freezes an answer for instant checking; the response reveals
// the verdict
func (h *AttemptHandler) LockAnswer(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	attemptID := c.MustGet("attemptID").(entity.AttemptID)

	var req LockAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answer, err := h.attemptService.LockAnswer(userID, attemptID, req.QuestionID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewAnswerResponse(answer))
}

// FinishAttempt completes the attempt and returns its result. When the
// remote store is unreachable the result is staged for sync and still
// returned to the caller.
func (h *AttemptHandler) FinishAttempt(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	attemptID := c.MustGet("attemptID").(entity.AttemptID)

	result, err := h.attemptService.Finish(userID, attemptID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewResultResponse(result))
}

// AbandonAttempt terminates the attempt without a result
func (h *AttemptHandler) AbandonAttempt(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	attemptID := c.MustGet("attemptID").(entity.AttemptID)

	if err := h.attemptService.Abandon(userID, attemptID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Attempt abandoned"})
}

// GetAttempt returns the live or persisted view of an attempt
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	attemptID := c.MustGet("attemptID").(entity.AttemptID)

	view, attempt, err := h.attemptService.Get(userID, attemptID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if view != nil {
		c.JSON(http.StatusOK, dto.NewAttemptViewResponse(view))
		return
	}
	c.JSON(http.StatusOK, dto.NewAttemptResponse(attempt, nil))
}

// GetAttemptResult returns the finalized result, resolving local ids that
// have been promoted by the sync drain
func (h *AttemptHandler) GetAttemptResult(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	attemptID := c.MustGet("attemptID").(entity.AttemptID)

	result, err := h.attemptService.GetResult(userID, attemptID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewResultResponse(result))
}
