package dashlink

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var retrySleep = time.Second

// Retryable is a long running connection that retry keeps alive.
type Retryable interface {
	Open() error
	Close() error
	Start(ctx context.Context) error
	Name() string
}

// retry opens r and runs it until ctx is done, closing and reopening it after every
// failure.
func retry(ctx context.Context, r Retryable) error {
	errStarting := errors.New("starting")
	err := errStarting
	for {
		if ctx.Err() != nil {
			if closeErr := r.Close(); closeErr != nil {
				log.WithField("err", closeErr).Debugf("%s: unable to close", r.Name())
			}
			return ctx.Err()
		}
		if err != nil {
			if err != errStarting {
				log.WithField("err", err).Errorf("%s: reconnecting due to error", r.Name())
				if err = r.Close(); err != nil {
					log.WithField("err", err).Warnf("%s: unable to close", r.Name())
				}
				if err = sleep(ctx, retrySleep); err != nil {
					continue
				}
			}
			err = r.Open()
			if err != nil {
				continue
			}
			log.Infof("%s: opened", r.Name())
		}
		err = r.Start(ctx)
	}
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
