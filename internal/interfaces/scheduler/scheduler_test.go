package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bankapi/internal/domain/account"
	"bankapi/internal/domain/reconcile"
	"bankapi/internal/infrastructure/storage"
)

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		in      string
		want    ScheduleTime
		wantErr bool
	}{
		{"02:00", ScheduleTime{Hour: 2}, false},
		{"7:05", ScheduleTime{Hour: 7, Minute: 5}, false},
		{"23:59", ScheduleTime{Hour: 23, Minute: 59}, false},
		{"24:00", ScheduleTime{}, true},
		{"12:60", ScheduleTime{}, true},
		{"noon", ScheduleTime{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScheduleTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestScheduler(t *testing.T, times ...string) *Scheduler {
	t.Helper()
	s, err := NewScheduler(times, NewWorkerPool(1, 0, 1, zap.NewNop()), nil, false, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestNewScheduler_RequiresTimes(t *testing.T) {
	pool := NewWorkerPool(1, 0, 1, zap.NewNop())

	_, err := NewScheduler(nil, pool, nil, false, zap.NewNop())
	assert.Error(t, err)

	_, err = NewScheduler([]string{"7pm"}, pool, nil, false, zap.NewNop())
	assert.Error(t, err)
}

func TestScheduler_DueOncePerMinute(t *testing.T) {
	s := newTestScheduler(t, "02:00", "14:30")

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, s.due(day.Add(1*time.Hour)))
	assert.True(t, s.due(day.Add(2*time.Hour)))
	assert.False(t, s.due(day.Add(2*time.Hour+10*time.Second)))
	assert.True(t, s.due(day.Add(14*time.Hour+30*time.Minute)))
	assert.True(t, s.due(day.AddDate(0, 0, 1).Add(2*time.Hour)))
}

func TestScheduler_NextScheduledTime(t *testing.T) {
	s := newTestScheduler(t, "14:30", "02:00")

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC), s.NextScheduledTime(now))

	now = time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC), s.NextScheduledTime(now))
}

func TestScheduler_RunOnStartup(t *testing.T) {
	ctx := context.Background()
	stores, err := storage.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	for id := int64(1); id <= 3; id++ {
		_, err := stores.Accounts.Create(ctx, &account.Account{
			ID:             id,
			Name:           "Holder",
			OpeningBalance: decimal.NewFromInt(10),
			Balance:        decimal.NewFromInt(10 * id),
			Status:         account.StatusActive,
			CreatedAt:      time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	reports := make(chan *reconcile.Report, 1)
	svc := reconcile.NewService(stores.Accounts, stores.Transactions)
	s, err := NewScheduler([]string{"03:00"}, NewWorkerPool(2, 0, 2, zap.NewNop()),
		ReconcileJobProvider(svc, zap.NewNop(), func(r *reconcile.Report) { reports <- r }),
		true, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	defer s.Shutdown(time.Second)

	select {
	case r := <-reports:
		assert.Equal(t, 3, r.Checked())
		drifted := r.Drifted()
		require.Len(t, drifted, 2)
		assert.Equal(t, int64(2), drifted[0].AccountID)
		assert.Equal(t, int64(3), drifted[1].AccountID)
	case <-time.After(5 * time.Second):
		t.Fatal("startup reconcile did not finish")
	}
}
