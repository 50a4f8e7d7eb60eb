package daemon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRelease(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	defer s.Stop(context.Background()) //nolint:errcheck

	id, err := s.ScheduleRelease("0 4 * * *", func() {})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestScheduleReleaseInvalidExpression(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	defer s.Stop(context.Background()) //nolint:errcheck

	_, err = s.ScheduleRelease("not a cron line", func() {})
	assert.Error(t, err)
}

func TestSchedulerStartStop(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)

	_, err = s.ScheduleRelease("0 4 * * *", func() {})
	require.NoError(t, err)

	ctx := context.Background()
	s.Start(ctx)
	assert.NoError(t, s.Stop(ctx))
}
