package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	cause := stderrors.New("boom")

	tests := []struct {
		err    *AppError
		typ    ErrorType
		status int
	}{
		{NewValidationError("bad", cause), ErrorTypeValidation, http.StatusBadRequest},
		{NewDecodeError("bad", cause), ErrorTypeDecode, http.StatusUnprocessableEntity},
		{NewProcessingError("bad", cause), ErrorTypeProcessing, http.StatusUnprocessableEntity},
		{NewTooLargeError("bad", cause), ErrorTypeTooLarge, http.StatusRequestEntityTooLarge},
		{NewIOError("bad", cause), ErrorTypeIO, http.StatusInternalServerError},
		{NewInternalError("bad", cause), ErrorTypeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.err.Type)
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.ErrorIs(t, tt.err, cause)
			assert.Contains(t, tt.err.Error(), "caused by: boom")
		})
	}
}

func TestErrorWithoutCause(t *testing.T) {
	assert.Equal(t, "validation: missing image", NewValidationError("missing image", nil).Error())
}

func TestWrappedLookup(t *testing.T) {
	inner := NewDecodeError("not an image", nil)
	wrapped := fmt.Errorf("convert: %w", inner)

	assert.True(t, IsType(wrapped, ErrorTypeDecode))
	assert.False(t, IsType(wrapped, ErrorTypeIO))
	assert.Equal(t, http.StatusUnprocessableEntity, GetStatusCode(wrapped))
	assert.Equal(t, http.StatusInternalServerError, GetStatusCode(stderrors.New("plain")))

	got, ok := As(wrapped)
	assert.True(t, ok)
	assert.Same(t, inner, got)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "x"))

	decode := NewDecodeError("bad bytes", nil)
	assert.Same(t, decode, Wrap(fmt.Errorf("ctx: %w", decode), "ignored"))

	plain := stderrors.New("disk")
	w := Wrap(plain, "unexpected failure")
	assert.Equal(t, ErrorTypeInternal, w.Type)
	assert.Equal(t, "unexpected failure", w.Message)
	assert.ErrorIs(t, w, plain)
}
