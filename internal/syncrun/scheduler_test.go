package syncrun

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScheduler_RejectsInvalidSpec(t *testing.T) {
	s := NewScheduler(NewRunner(nil), nil)
	err := s.Schedule("not a cron spec", nil, func(now time.Time) *Context { return &Context{} })
	require.Error(t, err)
}

func TestScheduler_AcceptsStandardSpec(t *testing.T) {
	s := NewScheduler(NewRunner(nil), nil)
	err := s.Schedule("*/5 * * * *", nil, func(now time.Time) *Context { return &Context{Now: now} })
	require.NoError(t, err)
}

func TestScheduler_StopDrains(t *testing.T) {
	s := NewScheduler(NewRunner(nil), nil)
	require.NoError(t, s.Schedule("*/5 * * * *", nil, func(now time.Time) *Context { return &Context{} }))
	s.Start()

	select {
	case <-s.Stop().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("cron runner did not drain")
	}
}
