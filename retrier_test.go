package dashlink

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func noDelays() func() {
	origRetrySleep := retrySleep
	retrySleep = 0
	return func() {
		retrySleep = origRetrySleep
	}
}

type retryable struct {
	mu          sync.Mutex
	open        bool
	hasClosed   bool
	openErr     error
	startedChan chan struct{}
	stopChan    chan error
}

func (r *retryable) Open() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openErr != nil {
		err := r.openErr
		r.openErr = nil
		return err
	}
	r.open = true
	return nil
}

func (r *retryable) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
	r.hasClosed = true
	return nil
}

func (r *retryable) Start(ctx context.Context) error {
	r.startedChan <- struct{}{}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-r.stopChan:
		return err
	}
}

func (r *retryable) Name() string {
	return "retryable-test"
}

func (r *retryable) state() (open, hasClosed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open, r.hasClosed
}

func TestRetry(t *testing.T) {
	defer noDelays()()
	r := retryable{
		startedChan: make(chan struct{}),
		stopChan:    make(chan error),
	}

	wg := sync.WaitGroup{}
	wg.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	var retryErr error
	go func() {
		retryErr = retry(ctx, &r)
		wg.Done()
	}()
	// wait for start to be called
	<-r.startedChan
	open, hasClosed := r.state()
	assert.True(t, open)
	assert.False(t, hasClosed)

	// trigger start to exit with no error
	r.stopChan <- nil
	<-r.startedChan
	open, hasClosed = r.state()
	assert.True(t, open)
	assert.False(t, hasClosed)

	// emulate an error being returned from start
	r.stopChan <- errors.New("fake error")
	<-r.startedChan
	// check that it was closed and re-opened
	open, hasClosed = r.state()
	assert.True(t, hasClosed)
	assert.True(t, open)

	cancel()
	wg.Wait()
	assert.Equal(t, context.Canceled, retryErr)
	open, _ = r.state()
	assert.False(t, open)
}

func TestRetryOpenFailure(t *testing.T) {
	defer noDelays()()
	r := retryable{
		openErr:     errors.New("no such device"),
		startedChan: make(chan struct{}),
		stopChan:    make(chan error),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- retry(ctx, &r)
	}()
	// the first open fails, the second succeeds and starts
	<-r.startedChan
	open, _ := r.state()
	assert.True(t, open)

	cancel()
	assert.Equal(t, context.Canceled, <-done)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, sleep(context.Background(), 0))
	assert.NoError(t, sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.Equal(t, context.Canceled, sleep(ctx, time.Hour))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, context.Canceled, sleep(ctx, 0))
}
