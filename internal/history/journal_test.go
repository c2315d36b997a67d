package history

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type fakeSink struct {
	recorded []*Attempt
	err      error
}

func (f *fakeSink) Record(_ context.Context, a *Attempt) error {
	f.recorded = append(f.recorded, a)
	return f.err
}

func (f *fakeSink) InsertAttempt(_ context.Context, a *Attempt) error {
	f.recorded = append(f.recorded, a)
	return f.err
}

func TestJournal_RecordsTerminalOnly(t *testing.T) {
	cache := &fakeSink{}
	store := &fakeSink{}
	j := NewJournal(cache, store, logrus.New())

	j.Record(context.Background(), &Attempt{Status: StatusSending})
	assert.Empty(t, cache.recorded)
	assert.Empty(t, store.recorded)

	j.Record(context.Background(), &Attempt{Status: StatusSuccess})
	assert.Len(t, cache.recorded, 1)
	assert.Len(t, store.recorded, 1)
}

func TestJournal_SinkFailureDoesNotStopOthers(t *testing.T) {
	cache := &fakeSink{err: errors.New("redis down")}
	store := &fakeSink{}
	j := NewJournal(cache, store, logrus.New())

	j.Record(context.Background(), &Attempt{Status: StatusFailed})
	assert.Len(t, store.recorded, 1, "archive must still run when the cache sink fails")
}

func TestJournal_NilSinks(t *testing.T) {
	j := NewJournal(nil, nil, logrus.New())
	// Must not panic.
	j.Record(context.Background(), &Attempt{Status: StatusTimedOut})
}

func TestStatus_Terminal(t *testing.T) {
	terminal := []Status{StatusSuccess, StatusFailed, StatusTimedOut}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), string(s))
	}
	for _, s := range []Status{StatusIdle, StatusQuoting, StatusPendingApproval, StatusSending} {
		assert.False(t, s.Terminal(), string(s))
	}
}
