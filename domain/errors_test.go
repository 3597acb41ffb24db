package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumbersUnavailableError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("failed to claim numbers: %w", &NumbersUnavailableError{Numbers: []int64{3, 7}})

	assert.True(t, errors.Is(err, ErrNumbersUnavailable))
	assert.Equal(t, []int64{3, 7}, UnavailableNumbers(err))
	assert.Contains(t, err.Error(), "numbers unavailable: 3, 7")
	assert.Nil(t, UnavailableNumbers(ErrRaffleNotFound))
}
