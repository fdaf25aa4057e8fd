package services

import (
	"strings"
	"time"

	"github.com/ShepherdLoop/models"
)

var (
	promisingPhrases  = []string{"interested", "will attend", "positive"}
	coldPhrases       = []string{"not interested", "do not call", "declined"}
	commitmentPhrases = []string{"joined", "attended"}
)

// ClassifyResponse maps an attempt's outcome and notes to a response category.
// The first matching rule wins: explicit outcome, then promising phrases, then
// cold phrases. Note that "not interested" contains "interested" and therefore
// reads as promising.
func ClassifyResponse(outcome models.AttemptOutcome, notes string) models.ResponseCategory {
	switch outcome {
	case models.AttemptOutcomePositive:
		return models.ResponseCategoryPromising
	case models.AttemptOutcomeNegative:
		return models.ResponseCategoryCold
	}

	lowered := strings.ToLower(notes)
	if containsAny(lowered, promisingPhrases) {
		return models.ResponseCategoryPromising
	}
	if containsAny(lowered, coldPhrases) {
		return models.ResponseCategoryCold
	}
	return models.ResponseCategoryUndecided
}

// FollowUpInterval is the gap until the next attempt for a cadence token and
// the latest response category.
func FollowUpInterval(frequency string, category models.ResponseCategory) int {
	var days int
	switch frequency {
	case "2/week":
		days = 3
	case "3/week":
		days = 2
	default:
		days = 7
	}

	switch category {
	case models.ResponseCategoryPromising:
		days--
		if days < 1 {
			days = 1
		}
	case models.ResponseCategoryCold:
		days += 2
	}
	return days
}

// NextFollowUpDate returns when the next attempt is due, counted in calendar days
// from the last attempt, or from now when there has been none.
func NextFollowUpDate(frequency string, category models.ResponseCategory, lastAttempt *time.Time, now time.Time) time.Time {
	from := now
	if lastAttempt != nil {
		from = *lastAttempt
	}
	return from.AddDate(0, 0, FollowUpInterval(frequency, category))
}

// ResolveStatus decides the lifecycle status after attempt has been recorded
// against followUp. followUp.Attempts must not yet include attempt.
func ResolveStatus(followUp *models.FollowUp, attempt models.FollowUpAttempt, category models.ResponseCategory) models.FollowUpStatus {
	if category == models.ResponseCategoryCold {
		return models.FollowUpStatusFailed
	}

	if category == models.ResponseCategoryPromising && containsAny(strings.ToLower(attempt.Notes), commitmentPhrases) {
		return models.FollowUpStatusCompleted
	}

	if len(followUp.Attempts)+1 >= followUp.Required_Attempts {
		if category == models.ResponseCategoryPromising {
			return models.FollowUpStatusCompleted
		}
		return models.FollowUpStatusFailed
	}

	return models.FollowUpStatusInProgress
}

func containsAny(s string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}
