package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	perrors "github.com/phaseflow/phaseflow/internal/errors"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
}

func TestDo_Success(t *testing.T) {
	calls := 0
	err := Default().Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_QuotaNotRetried(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return perrors.ErrQuotaExceeded
	})
	assert.ErrorIs(t, err, perrors.ErrQuotaExceeded)
	assert.Equal(t, 1, calls)
}

func TestDo_AuthNotRetried(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return perrors.ErrAuth
	})
	assert.ErrorIs(t, err, perrors.ErrAuth)
	assert.Equal(t, 1, calls)
}

func TestDo_TransientEventualSuccess(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return perrors.ErrRateLimit
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_TransientAllFail(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return perrors.NewAPIError("gateway", 503, "down")
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := fastPolicy(3).Do(ctx, func(ctx context.Context) error {
		return perrors.ErrUnavailable
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_GenericErrorNotRetried(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("parse failure")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
