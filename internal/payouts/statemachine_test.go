package payouts

import (
	"testing"

	"github.com/safar/go-sql-marketplace/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.PayoutStatus
		want     bool
	}{
		{models.PayoutStatusPending, models.PayoutStatusProcessing, true},
		{models.PayoutStatusPending, models.PayoutStatusCompleted, true},
		{models.PayoutStatusPending, models.PayoutStatusFailed, true},
		{models.PayoutStatusPending, models.PayoutStatusCancelled, true},
		{models.PayoutStatusProcessing, models.PayoutStatusCompleted, true},
		{models.PayoutStatusProcessing, models.PayoutStatusFailed, true},
		{models.PayoutStatusProcessing, models.PayoutStatusCancelled, true},
		{models.PayoutStatusProcessing, models.PayoutStatusPending, false},
		{models.PayoutStatusCompleted, models.PayoutStatusFailed, false},
		{models.PayoutStatusFailed, models.PayoutStatusProcessing, false},
		{models.PayoutStatusCancelled, models.PayoutStatusPending, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(models.PayoutStatusPending))
	assert.False(t, IsTerminal(models.PayoutStatusProcessing))
	assert.True(t, IsTerminal(models.PayoutStatusCompleted))
	assert.True(t, IsTerminal(models.PayoutStatusFailed))
	assert.True(t, IsTerminal(models.PayoutStatusCancelled))
}
