package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/idoneo-api/internal/domain/repository"
	"github.com/yourusername/idoneo-api/internal/handler/dto"
)

// QuizHandler serves the quiz catalog
type QuizHandler struct {
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(quizRepo repository.QuizRepository, questionRepo repository.QuestionRepository) *QuizHandler {
	return &QuizHandler{quizRepo: quizRepo, questionRepo: questionRepo}
}

// GetQuiz returns one quiz configuration
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID := c.MustGet("quizID").(string)

	quiz, err := h.quizRepo.GetByID(quizID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz))
}

// GetQuizQuestions returns the quiz's question snapshot without answer keys
func (h *QuizHandler) GetQuizQuestions(c *gin.Context) {
	quizID := c.MustGet("quizID").(string)

	quiz, err := h.quizRepo.GetByID(quizID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	questions, err := h.questionRepo.GetByIDs(quiz.QuestionIDs)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quiz_id":   quiz.ID,
		"questions": dto.NewListQuestionResponse(questions),
	})
}

// ListQuizzes returns the quiz catalog with pagination and filters
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	page, pageSize := paginationParams(c)

	filters := repository.QuizFilters{
		Search:       c.Query("search"),
		OfficialOnly: c.Query("official") == "true",
	}

	quizzes, total, err := h.quizRepo.ListWithFilters(filters, pageSize, (page-1)*pageSize)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPaginatedQuizResponse(quizzes, total, page, pageSize))
}

func paginationParams(c *gin.Context) (page, pageSize int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err = strconv.Atoi(c.DefaultQuery("page_size", "10"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}
