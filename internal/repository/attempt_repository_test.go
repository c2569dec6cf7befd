package repository

import (
	"errors"
	"testing"

	"github.com/caseforge/drillapi/internal/apperr"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateActiveDuplicate(t *testing.T) {
	// A violation of the one-active-attempt index surfaces as the same kind
	// the service-level pre-check raises.
	err := translateActiveDuplicate(gorm.ErrDuplicatedKey, 3)
	assert.Equal(t, apperr.KindAlreadyInProgress, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "drill 3")

	// Other errors pass through untouched.
	other := errors.New("connection reset")
	assert.Equal(t, other, translateActiveDuplicate(other, 3))

	assert.NoError(t, translateActiveDuplicate(nil, 3))
}

func TestTranslateNotFound(t *testing.T) {
	err := translateNotFound(gorm.ErrRecordNotFound, "attempt", 9)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	other := errors.New("connection reset")
	assert.Equal(t, other, translateNotFound(other, "attempt", 9))
}
