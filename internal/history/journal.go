package history

import (
	"context"

	"github.com/sirupsen/logrus"
)

// attemptRecorder and attemptArchiver are the slices of Recorder and
// ClickHouseStore the journal needs; declared locally so the journal
// stays decoupled from the concrete backends.
type attemptRecorder interface {
	Record(ctx context.Context, a *Attempt) error
}

type attemptArchiver interface {
	InsertAttempt(ctx context.Context, a *Attempt) error
}

// Journal fans one terminal attempt into every configured sink. Either
// sink may be nil; recording is best-effort and never fails the swap
// that produced the attempt.
type Journal struct {
	cache  attemptRecorder
	store  attemptArchiver
	logger *logrus.Logger
}

func NewJournal(cache attemptRecorder, store attemptArchiver, logger *logrus.Logger) *Journal {
	if logger == nil {
		logger = logrus.New()
	}
	return &Journal{cache: cache, store: store, logger: logger}
}

func (j *Journal) Record(ctx context.Context, a *Attempt) {
	if !a.Status.Terminal() {
		j.logger.WithField("status", a.Status).Warn("Refusing to record non-terminal attempt")
		return
	}

	if j.cache != nil {
		if err := j.cache.Record(ctx, a); err != nil {
			j.logger.WithError(err).Error("Failed to record attempt in cache")
		}
	}
	if j.store != nil {
		if err := j.store.InsertAttempt(ctx, a); err != nil {
			j.logger.WithError(err).Error("Failed to archive attempt")
		}
	}
}
