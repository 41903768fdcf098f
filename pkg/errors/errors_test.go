package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrValidation, "bad year"))
	got := FromError(wrapped)
	assert.Equal(t, ErrValidation.Code, got.Code)
	assert.Equal(t, "bad year", got.Message)
}

func TestFromErrorNormalisesUnknown(t *testing.T) {
	got := FromError(stderrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, got.Code)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
}

func TestWrapUnwraps(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(cause, ErrStore.Code, ErrStore.Status, "failed to commit batch")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to commit batch: connection reset", err.Error())
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	_ = Clone(ErrForbidden, "admins only")
	assert.Equal(t, "forbidden", ErrForbidden.Message)
}
