package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureUpcomingRepo struct {
	schedulesRepo
	from time.Time
}

func (c *captureUpcomingRepo) ListUpcoming(
	_ context.Context, _ int64, from time.Time, _ int,
) ([]ScheduledWorkout, error) {
	c.from = from
	return nil, nil
}

func TestListUpcoming_FromLocalMidnight(t *testing.T) {
	repo := &captureUpcomingRepo{}
	svc := NewService(repo, nil, nil, nil)

	// shortly after midnight east of Greenwich: the window must start at
	// the caller's midnight, a UTC truncation would land on the previous day
	loc := time.FixedZone("UTC+5", 5*60*60)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 1, 30, 0, 0, loc) }

	_, err := svc.ListUpcoming(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, loc), repo.from)
}
