package syncerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "code only",
			err:      &Error{Code: CodeNetwork},
			expected: "network",
		},
		{
			name:     "op and key",
			err:      &Error{Code: CodeRefNotFound, Op: "check", Key: "en/cards", Message: "branch not found"},
			expected: "check en/cards: branch not found",
		},
		{
			name:     "op without key",
			err:      &Error{Code: CodeStorage, Op: "open", Message: "cannot create data dir"},
			expected: "open: cannot create data dir",
		},
		{
			name:     "with cause",
			err:      &Error{Code: CodeNetwork, Op: "update", Key: "jp/basic", Message: "fetch failed", Err: errors.New("connection refused")},
			expected: "update jp/basic: fetch failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_IsMatchesSentinelByCode(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("outer: %w", New(CodeRefNotFound, "download", "fr/sounds", "branch fr/sounds not found"))

	assert.ErrorIs(t, err, ErrRefNotFound)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Equal(t, CodeRefNotFound, CodeOf(err))
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("nil stays nil", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, Wrap(CodeStorage, "op", "key", nil, "msg"))
	})

	t.Run("foreign error gets code", func(t *testing.T) {
		t.Parallel()
		cause := errors.New("disk full")
		err := Wrap(CodeStorage, "download", "en/cards", cause, "failed to write")
		assert.Equal(t, CodeStorage, CodeOf(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("domain error keeps its code", func(t *testing.T) {
		t.Parallel()
		inner := New(CodeCancelled, "", "", "transfer cancelled")
		err := Wrap(CodeNetwork, "update", "en/cards", inner, "fetch failed")
		assert.Equal(t, CodeCancelled, CodeOf(err))

		var domainErr *Error
		assert.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "update", domainErr.Op)
		assert.Equal(t, "en/cards", domainErr.Key)
	})
}

func TestCode_Retryable(t *testing.T) {
	t.Parallel()

	assert.True(t, CodeNetwork.Retryable())
	assert.True(t, CodeBusy.Retryable())
	assert.False(t, CodeRefNotFound.Retryable())
	assert.False(t, CodeCancelled.Retryable())
	assert.Equal(t, "code(42)", Code(42).String())
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
}
