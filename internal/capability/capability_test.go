package capability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/lexsy/internal/models"
)

func TestCall_success(t *testing.T) {
	got, err := Call(context.Background(), time.Second, "embed", func(ctx context.Context) (int, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestCall_timeout(t *testing.T) {
	_, err := Call(context.Background(), 10*time.Millisecond, "embed", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCall_providerError(t *testing.T) {
	_, err := Call(context.Background(), 0, "complete", func(ctx context.Context) (string, error) {
		return "", errors.New("connection refused")
	})
	assert.ErrorIs(t, err, models.ErrProvider)
	assert.Contains(t, err.Error(), "complete failed")
}

func TestCall_classifiedPassThrough(t *testing.T) {
	_, err := Call(context.Background(), time.Second, "fetch thread", func(ctx context.Context) ([]string, error) {
		return nil, models.NewError(models.KindAuth, "token rejected")
	})
	assert.Equal(t, models.KindAuth, models.KindOf(err))
}

func TestCall_noTimeoutLeavesContextAlone(t *testing.T) {
	_, err := Call(context.Background(), 0, "embed", func(ctx context.Context) (bool, error) {
		_, hasDeadline := ctx.Deadline()
		assert.False(t, hasDeadline)
		return true, nil
	})
	require.NoError(t, err)
}
