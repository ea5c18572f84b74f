package payouts

import (
	"slices"

	"github.com/safar/go-sql-marketplace/internal/models"
)

// pending -> completed covers manual settlement without a processing step.
var transitions = map[models.PayoutStatus][]models.PayoutStatus{
	models.PayoutStatusPending: {
		models.PayoutStatusProcessing,
		models.PayoutStatusCompleted,
		models.PayoutStatusFailed,
		models.PayoutStatusCancelled,
	},
	models.PayoutStatusProcessing: {
		models.PayoutStatusCompleted,
		models.PayoutStatusFailed,
		models.PayoutStatusCancelled,
	},
}

func CanTransition(from, to models.PayoutStatus) bool {
	return slices.Contains(transitions[from], to)
}

func IsTerminal(s models.PayoutStatus) bool {
	return len(transitions[s]) == 0
}
