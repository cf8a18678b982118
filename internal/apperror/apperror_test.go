package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	sentinel := New(KindInvalidState, "booking is not pending")
	wrapped := fmt.Errorf("accept: %w", New(KindInvalidState, "already accepted"))

	assert.ErrorIs(t, wrapped, sentinel)
	assert.NotErrorIs(t, wrapped, New(KindConflict, ""))
}

func TestErrorIsMatchesReason(t *testing.T) {
	err := Unavailable(ReasonBlackout)

	assert.ErrorIs(t, err, Unavailable(ReasonBlackout))
	assert.NotErrorIs(t, err, Unavailable(ReasonOutsideSchedule))
	assert.ErrorIs(t, err, New(KindAvailability, ""))
}

func TestKindAndReasonOf(t *testing.T) {
	err := fmt.Errorf("create: %w", Unavailable(ReasonAlreadyBooked))

	assert.Equal(t, KindAvailability, KindOf(err))
	assert.Equal(t, ReasonAlreadyBooked, ReasonOf(err))
	assert.True(t, IsKind(err, KindAvailability))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(KindNotFound, "spot not found", errors.New("sql: no rows in result set"))
	assert.Equal(t, "spot not found: sql: no rows in result set", err.Error())
	assert.Equal(t, "spot is not bookable for the requested interval (blackout)", Unavailable(ReasonBlackout).Error())
}
