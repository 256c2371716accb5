package scheduler

import (
	"bytes"
	"context"
	"sync"

	"github.com/aatumaykin/iliassync/internal/logger"
)

// testLogger creates a test logger instance
func testLogger() *logger.Logger {
	log, err := logger.New(logger.Config{
		Level:   "debug",
		Format:  "text",
		Outputs: []string{"stdout"},
	})
	if err != nil {
		panic(err)
	}
	return log
}

// stopScheduler stops a scheduler and ignores the error (for use in defer in tests)
func stopScheduler(s *Scheduler) {
	_ = s.Stop()
}

// recorder is an Action that counts its invocations.
type recorder struct {
	mu    sync.Mutex
	calls int
	fired chan struct{}
	err   error
}

func newRecorder() *recorder {
	return &recorder{fired: make(chan struct{}, 16)}
}

func (r *recorder) action(ctx context.Context) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	r.fired <- struct{}{}
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// syncBuffer collects log output written from firing goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
