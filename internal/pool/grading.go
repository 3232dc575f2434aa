package pool

import (
	"strconv"
	"strings"

	"github.com/abrezinsky/squarespool/internal/errors"
	"github.com/abrezinsky/squarespool/internal/models"
)

// Outcome is the graded result of one answer
type Outcome int

const (
	Incorrect Outcome = iota
	Correct
	// Push is an over/under answer whose actual value landed exactly on the line
	Push
)

func (o Outcome) String() string {
	switch o {
	case Correct:
		return "correct"
	case Push:
		return "push"
	default:
		return "incorrect"
	}
}

// GradingKey is what the admin enters to grade a prop. Over/under props need
// ActualValue; every other type needs CorrectAnswer.
type GradingKey struct {
	CorrectAnswer string   `json:"correct_answer"`
	ActualValue   *float64 `json:"actual_value"`
}

// ErrMissingKey is returned when grading is attempted without a result
var ErrMissingKey = errors.Validation("a correct answer or actual value is required before grading")

// NormalizeKey validates the key against the prop and returns it in the same
// normal form that submitted answers are stored in.
func NormalizeKey(prop models.PropBet, key GradingKey) (GradingKey, error) {
	if prop.AnswerType == models.AnswerOverUnder {
		if prop.Line == nil {
			return key, errors.Validation("over/under prop has no line")
		}
		if key.ActualValue == nil {
			v, err := strconv.ParseFloat(strings.TrimSpace(key.CorrectAnswer), 64)
			if err != nil {
				return key, ErrMissingKey
			}
			key.ActualValue = &v
		}
		key.CorrectAnswer = formatNumber(*key.ActualValue)
		return key, nil
	}

	if strings.TrimSpace(key.CorrectAnswer) == "" {
		if key.ActualValue == nil || prop.AnswerType != models.AnswerExactNumber {
			return key, ErrMissingKey
		}
		key.CorrectAnswer = formatNumber(*key.ActualValue)
	}
	normalized, err := NormalizeAnswer(prop, key.CorrectAnswer)
	if err != nil {
		return key, errors.Validationf("correct answer is not valid: %s", err.Error())
	}
	key.CorrectAnswer = normalized
	return key, nil
}

// Grade classifies an answer against a normalized key.
//
// Over/under is correct when the answer is "over" and the actual value is
// above the line, or "under" and below it. Landing exactly on the line is a
// push. All other types compare case-insensitively with the correct answer.
func Grade(prop models.PropBet, key GradingKey, answer string) Outcome {
	answer = models.NormalizeAnswer(answer)

	if prop.AnswerType == models.AnswerOverUnder {
		if prop.Line == nil || key.ActualValue == nil {
			return Incorrect
		}
		actual, line := *key.ActualValue, *prop.Line
		switch {
		case actual == line:
			return Push
		case answer == "over" && actual > line:
			return Correct
		case answer == "under" && actual < line:
			return Correct
		}
		return Incorrect
	}

	if answer == models.NormalizeAnswer(key.CorrectAnswer) {
		return Correct
	}
	return Incorrect
}

// Points returns the points an outcome earns
func Points(o Outcome, pointValue int) int {
	if o == Correct {
		return pointValue
	}
	return 0
}

// NormalizeAnswer validates a submitted answer for the prop's type and returns
// the form it is stored in.
func NormalizeAnswer(prop models.PropBet, answer string) (string, error) {
	a := models.NormalizeAnswer(answer)
	if a == "" {
		return "", errors.InvalidInput("answer is required")
	}

	switch prop.AnswerType {
	case models.AnswerYesNo:
		if a != "yes" && a != "no" {
			return "", errors.InvalidInput("answer must be yes or no")
		}
	case models.AnswerOverUnder:
		if a != "over" && a != "under" {
			return "", errors.InvalidInput("answer must be over or under")
		}
	case models.AnswerMultipleChoice:
		for _, opt := range prop.Options {
			if models.NormalizeAnswer(opt) == a {
				return a, nil
			}
		}
		return "", errors.InvalidInputf("answer must be one of: %s", strings.Join(prop.Options, ", "))
	case models.AnswerExactNumber:
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return "", errors.InvalidInput("answer must be a number")
		}
		a = formatNumber(v)
	default:
		return "", errors.Validationf("unknown answer type %q", prop.AnswerType)
	}
	return a, nil
}

// ValidateProp checks a prop definition
func ValidateProp(prop models.PropBet) error {
	if strings.TrimSpace(prop.Question) == "" {
		return errors.Validation("question is required")
	}
	if !prop.AnswerType.Valid() {
		return errors.Validationf("unknown answer type %q", prop.AnswerType)
	}
	if prop.PointValue < 0 {
		return errors.Validation("point value must be non-negative")
	}
	switch prop.AnswerType {
	case models.AnswerOverUnder:
		if prop.Line == nil {
			return errors.Validation("over/under props need a line")
		}
	case models.AnswerMultipleChoice:
		if len(prop.Options) < 2 {
			return errors.Validation("multiple choice props need at least two options")
		}
		seen := make(map[string]bool, len(prop.Options))
		for _, opt := range prop.Options {
			n := models.NormalizeAnswer(opt)
			if n == "" || seen[n] {
				return errors.Validation("options must be non-empty and distinct")
			}
			seen[n] = true
		}
	}
	return nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
