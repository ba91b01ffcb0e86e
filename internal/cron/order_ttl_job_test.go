package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worklane/worklane-backend/pkg/logger"
)

type fakeStaleOrderExpirer struct {
	cutoff     time.Time
	projectErr error
	digital    int64
	calls      int
}

func (f *fakeStaleOrderExpirer) ExpireStalePending(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	f.cutoff = cutoff
	return 2, f.projectErr
}

func (f *fakeStaleOrderExpirer) ExpireStalePendingDigital(_ context.Context, cutoff time.Time) (int64, error) {
	f.calls++
	return f.digital, nil
}

func TestOrderTTLJobExpiresBothTables(t *testing.T) {
	expirer := &fakeStaleOrderExpirer{digital: 1}
	job, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Orders: expirer,
		TTL:    48 * time.Hour,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 2, expirer.calls)

	wantCutoff := time.Now().UTC().Add(-48 * time.Hour)
	assert.WithinDuration(t, wantCutoff, expirer.cutoff, time.Minute)
}

func TestOrderTTLJobStillSweepsDigitalOnProjectFailure(t *testing.T) {
	expirer := &fakeStaleOrderExpirer{projectErr: errors.New("db down")}
	job, err := NewOrderTTLJob(OrderTTLJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
		Orders: expirer,
	})
	require.NoError(t, err)

	require.Error(t, job.Run(context.Background()))
	assert.Equal(t, 2, expirer.calls)
}
