package attemptrunner

import (
	"strings"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// Punctuation that two generations of CSV imports left around answer keys:
// "A)", "b.", "(c)", "[d]" and friends all mean the same letter.
const strippedPunctuation = ".,:;()[]"

// normalizeToken strips punctuation, trims whitespace and lowercases. Total
// and idempotent: any input yields a stable token, possibly empty.
func normalizeToken(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(strippedPunctuation, r) {
			return -1
		}
		return r
	}, raw)
	return strings.ToLower(strings.TrimSpace(cleaned))
}

// NormalizeOption canonicalizes a raw option value into one of the four
// letters, or OptionNone when it is not recognizably a letter.
func NormalizeOption(raw string) entity.Option {
	o := entity.Option(normalizeToken(raw))
	if o.IsValid() {
		return o
	}
	return entity.OptionNone
}

// CanonicalAnswerKey derives the single canonical correct option for a
// question, trying the stored answer-key columns in resolution order. A
// value that is not a bare letter is matched against the full option texts.
// OptionNone means the question is unscoreable; the caller flags it, it is
// never silently counted as wrong or correct.
func CanonicalAnswerKey(q *entity.Question) entity.Option {
	for _, raw := range q.RawAnswerKeys() {
		token := normalizeToken(raw)
		if token == "" {
			continue
		}

		if o := entity.Option(token); o.IsValid() {
			return o
		}

		for _, o := range []entity.Option{entity.OptionA, entity.OptionB, entity.OptionC, entity.OptionD} {
			text := normalizeToken(q.OptionText(o))
			if text != "" && text == token {
				return o
			}
		}
	}
	return entity.OptionNone
}
