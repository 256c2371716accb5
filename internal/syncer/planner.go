// Package syncer decides which local files still need uploading and
// records them once an upload batch succeeds.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/wasilibs/go-re2"

	"github.com/aatumaykin/iliassync/internal/logger"
	"github.com/aatumaykin/iliassync/internal/metrics"
	"github.com/aatumaykin/iliassync/internal/syncstate"
)

// Uploader transfers a batch of files, given by their on-disk names relative
// to localRoot, to destination. It either succeeds for the whole batch or
// returns an error.
type Uploader interface {
	UploadFiles(ctx context.Context, localRoot string, files []string, destination string) error
}

// UploadBatchError wraps an uploader failure. Nothing from the batch was
// recorded as synced.
type UploadBatchError struct {
	Files       int
	Destination string
	Err         error
}

func (e *UploadBatchError) Error() string {
	return fmt.Sprintf("upload of %d files to %s failed: %v", e.Files, e.Destination, e.Err)
}

func (e *UploadBatchError) Unwrap() error {
	return e.Err
}

// Option configures a Planner.
type Option func(*Planner)

// WithExclude skips local paths matching any of the RE2 patterns.
func WithExclude(patterns ...string) Option {
	return func(p *Planner) {
		p.patterns = append(p.patterns, patterns...)
	}
}

// WithMetrics records sync outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Planner) {
		p.metrics = m
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		p.now = now
	}
}

// Planner owns the sync state. All Sync calls are serialized.
type Planner struct {
	mu          sync.Mutex
	fs          afero.Fs
	store       *syncstate.Store
	state       *syncstate.State
	destination string
	patterns    []string
	excludes    []*re2.Regexp
	metrics     *metrics.Metrics
	logger      *logger.Logger
	now         func() time.Time
}

// NewPlanner creates a planner uploading to destination. The state is not
// read until Load or the first Sync.
func NewPlanner(fsys afero.Fs, store *syncstate.Store, destination string, log *logger.Logger, opts ...Option) (*Planner, error) {
	p := &Planner{
		fs:          fsys,
		store:       store,
		destination: destination,
		logger:      log,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	excludes, err := compileExcludes(p.patterns)
	if err != nil {
		return nil, err
	}
	p.excludes = excludes

	return p, nil
}

// Destination returns the remote destination batches are uploaded to.
func (p *Planner) Destination() string {
	return p.destination
}

// Load reads the state file if it has not been read yet.
func (p *Planner) Load() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked()
}

// Snapshot returns a copy of the current state, loading it if needed.
func (p *Planner) Snapshot() (*syncstate.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loadLocked(); err != nil {
		return nil, err
	}
	return p.state.Clone(), nil
}

func (p *Planner) loadLocked() error {
	if p.state != nil {
		return nil
	}
	state, err := p.store.Load()
	if err != nil {
		return err
	}
	p.state = state
	p.metrics.SetSyncedFiles(state.Len())
	return nil
}

// Sync uploads every file under localRoot that is not recorded yet and
// returns how many were uploaded. On any failure the recorded state, in
// memory and on disk, is left as it was.
func (p *Planner) Sync(ctx context.Context, localRoot string, uploader Uploader) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.loadLocked(); err != nil {
		p.metrics.RecordSync(metrics.SyncLoadFailed, 0)
		return 0, fmt.Errorf("load sync state: %w", err)
	}

	found, err := ScanLocalFiles(p.fs, localRoot)
	if err != nil {
		p.metrics.RecordSync(metrics.SyncListFailed, 0)
		return 0, err
	}
	found = filterExcluded(found, p.excludes)

	local := make([]string, 0, len(found))
	for _, f := range found {
		local = append(local, f.Path)
	}
	fresh := p.state.Diff(local)
	if len(fresh) == 0 {
		p.logger.Info("no new files to upload",
			logger.Field{Key: "local_root", Value: localRoot},
			logger.Field{Key: "local_files", Value: len(local)})
		p.metrics.RecordSync(metrics.SyncNothingNew, 0)
		return 0, nil
	}

	p.logger.Info("uploading new files",
		logger.Field{Key: "count", Value: len(fresh)},
		logger.Field{Key: "destination", Value: p.destination})
	for _, f := range fresh {
		p.logger.Debug("new file", logger.Field{Key: "path", Value: f})
	}

	// The uploader reads from disk, so it gets the native names; the
	// canonical ones are what gets recorded.
	batch := nativePaths(fresh, found)
	if err := uploader.UploadFiles(ctx, localRoot, batch, p.destination); err != nil {
		p.metrics.RecordSync(metrics.SyncUploadFailed, 0)
		return 0, &UploadBatchError{Files: len(batch), Destination: p.destination, Err: err}
	}

	next := p.state.Clone()
	next.Commit(fresh, p.now())
	if err := p.store.Save(next); err != nil {
		p.metrics.RecordSync(metrics.SyncPersistFailed, 0)
		return 0, fmt.Errorf("record uploaded files: %w", err)
	}
	p.state = next

	p.metrics.RecordSync(metrics.SyncUploaded, len(fresh))
	p.metrics.SetSyncedFiles(next.Len())
	p.logger.Info("upload recorded",
		logger.Field{Key: "count", Value: len(fresh)},
		logger.Field{Key: "synced_files", Value: next.Len()})

	return len(fresh), nil
}
