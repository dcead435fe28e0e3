package dto

import (
	"time"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// QuestionOption is one answer choice as exposed to clients.
type QuestionOption struct {
	ID   string `json:"id"` // option letter a-d
	Text string `json:"text"`
}

// QuestionResponse is a question in client format. The answer-key columns
// never leave the server; correctness is only revealed per answered slot
// after locking or finishing.
type QuestionResponse struct {
	ID          string           `json:"id"`
	SubjectID   string           `json:"subject_id,omitempty"`
	Text        string           `json:"text"`
	Options     []QuestionOption `json:"options"`
	Explanation *string          `json:"explanation,omitempty"`
	ImageURL    *string          `json:"image_url,omitempty"`
}

// QuizResponse is a quiz in client format.
type QuizResponse struct {
	ID               string  `json:"id"`
	Slug             string  `json:"slug"`
	Title            string  `json:"title"`
	Description      string  `json:"description,omitempty"`
	QuestionCount    int     `json:"question_count"`
	TimeLimitMinutes int     `json:"time_limit_minutes"`
	PointsCorrect    float64 `json:"points_correct"`
	PointsWrong      float64 `json:"points_wrong"`
	PointsBlank      float64 `json:"points_blank"`
	MinCorrectToPass *int    `json:"min_correct_to_pass,omitempty"`
	IsOfficial       bool    `json:"is_official"`
}

// NewQuestionResponse creates the client DTO for a question
func NewQuestionResponse(q *entity.Question) QuestionResponse {
	options := make([]QuestionOption, 0, 4)
	for _, o := range []entity.Option{entity.OptionA, entity.OptionB, entity.OptionC, entity.OptionD} {
		if text := q.OptionText(o); text != "" {
			options = append(options, QuestionOption{ID: string(o), Text: text})
		}
	}
	return QuestionResponse{
		ID:          q.ID,
		SubjectID:   q.SubjectID,
		Text:        q.Text,
		Options:     options,
		Explanation: q.Explanation,
		ImageURL:    q.ImageURL,
	}
}

// NewQuizResponse creates the client DTO for a quiz
func NewQuizResponse(quiz *entity.Quiz) *QuizResponse {
	if quiz == nil {
		return nil
	}
	return &QuizResponse{
		ID:               quiz.ID,
		Slug:             quiz.Slug,
		Title:            quiz.Title,
		Description:      quiz.Description,
		QuestionCount:    quizQuestionCount(quiz),
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		PointsCorrect:    quiz.PointsCorrect,
		PointsWrong:      quiz.PointsWrong,
		PointsBlank:      quiz.PointsBlank,
		MinCorrectToPass: quiz.PassThreshold(),
		IsOfficial:       quiz.IsOfficial,
	}
}

func quizQuestionCount(quiz *entity.Quiz) int {
	if len(quiz.QuestionIDs) > 0 {
		return len(quiz.QuestionIDs)
	}
	return quiz.QuestionCount
}

// NewListQuizResponse creates DTOs for a quiz listing
func NewListQuizResponse(quizzes []entity.Quiz) []*QuizResponse {
	list := make([]*QuizResponse, len(quizzes))
	for i := range quizzes {
		list[i] = NewQuizResponse(&quizzes[i])
	}
	return list
}

// NewListQuestionResponse creates DTOs for a question listing
func NewListQuestionResponse(questions []entity.Question) []QuestionResponse {
	list := make([]QuestionResponse, len(questions))
	for i := range questions {
		list[i] = NewQuestionResponse(&questions[i])
	}
	return list
}

// PaginatedQuizResponse is one page of a quiz listing.
type PaginatedQuizResponse struct {
	Quizzes []*QuizResponse `json:"quizzes"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}

// NewPaginatedQuizResponse creates the DTO for one listing page
func NewPaginatedQuizResponse(quizzes []entity.Quiz, total int64, page, perPage int) *PaginatedQuizResponse {
	return &PaginatedQuizResponse{
		Quizzes: NewListQuizResponse(quizzes),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
}

// ResultResponse is a finalized attempt result in client format.
type ResultResponse struct {
	AttemptID     string    `json:"attempt_id"`
	QuizID        string    `json:"quiz_id"`
	Correct       int       `json:"correct"`
	Wrong         int       `json:"wrong"`
	Blank         int       `json:"blank"`
	Invalid       int       `json:"invalid"`
	Score         float64   `json:"score"`
	Passed        bool      `json:"passed"`
	PassThreshold int       `json:"pass_threshold"`
	XPEarned      int       `json:"xp_earned"`
	CompletedAt   time.Time `json:"completed_at"`
}

// NewResultResponse creates the client DTO for a result
func NewResultResponse(result *entity.Result) *ResultResponse {
	if result == nil {
		return nil
	}
	return &ResultResponse{
		AttemptID:     result.AttemptID,
		QuizID:        result.QuizID,
		Correct:       result.Correct,
		Wrong:         result.Wrong,
		Blank:         result.Blank,
		Invalid:       result.Invalid,
		Score:         result.Score,
		Passed:        result.Passed,
		PassThreshold: result.PassThreshold,
		XPEarned:      result.XPEarned,
		CompletedAt:   result.CompletedAt,
	}
}

// AnswerResponse is one answered slot in client format. Correctness is only
// populated once the slot is locked.
type AnswerResponse struct {
	QuestionID     string  `json:"question_id"`
	Position       int     `json:"position"`
	SelectedOption *string `json:"selected_option"`
	IsLocked       bool    `json:"is_locked"`
	IsCorrect      *bool   `json:"is_correct,omitempty"`
	CorrectOption  *string `json:"correct_option,omitempty"`
}

// NewAnswerResponse creates the client DTO for an answer slot
func NewAnswerResponse(a *entity.AttemptAnswer) AnswerResponse {
	resp := AnswerResponse{
		QuestionID:     a.QuestionID,
		Position:       a.Position,
		SelectedOption: a.SelectedOption,
		IsLocked:       a.IsLocked,
	}
	// Instant check: the key and the verdict are revealed only after locking.
	if a.IsLocked {
		correct := a.IsCorrect
		resp.IsCorrect = &correct
		if a.CorrectSnapshot != "" {
			key := a.CorrectSnapshot
			resp.CorrectOption = &key
		}
	}
	return resp
}

// NewListAnswerResponse creates DTOs for an answer sheet
func NewListAnswerResponse(answers []entity.AttemptAnswer) []AnswerResponse {
	list := make([]AnswerResponse, len(answers))
	for i := range answers {
		list[i] = NewAnswerResponse(&answers[i])
	}
	return list
}
