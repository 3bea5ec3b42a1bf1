package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	t.Run("wrapped sentinel keeps its kind", func(t *testing.T) {
		err := fmt.Errorf("failed to search vectors: %w", ErrStoreUnavailable)
		assert.Equal(t, "store_unavailable", Kind(err))
	})

	t.Run("unknown error is internal", func(t *testing.T) {
		assert.Equal(t, KindInternal, Kind(errors.New("boom")))
	})

	t.Run("nil has no kind", func(t *testing.T) {
		assert.Empty(t, Kind(nil))
	})
}

func TestIsRetriable(t *testing.T) {
	assert.True(t, IsRetriable(fmt.Errorf("x: %w", ErrUpstreamTimeout)))
	assert.True(t, IsRetriable(ErrStoreUnavailable))
	assert.False(t, IsRetriable(ErrUnsupportedCategory))
	assert.False(t, IsRetriable(ErrMissingField))
	assert.False(t, IsRetriable(errors.New("boom")))
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.True(t, IsTimeout(fmt.Errorf("post: %w", context.DeadlineExceeded)))
	assert.False(t, IsTimeout(context.Canceled))
	assert.False(t, IsTimeout(nil))
}

func TestNewFailure(t *testing.T) {
	f := NewFailure(fmt.Errorf("render wechsler: %w", ErrMissingField))
	assert.Equal(t, "missing_field", f.Kind)
	assert.Contains(t, f.Message, "render wechsler")
}

func TestFromContext(t *testing.T) {
	err := FromContext(fmt.Errorf("embed: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrUpstreamTimeout)

	plain := errors.New("boom")
	assert.Same(t, plain, FromContext(plain))
	assert.NoError(t, FromContext(nil))
}
