// Package pipeline runs one download-then-upload cycle.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/iliassync/internal/logger"
	"github.com/aatumaykin/iliassync/internal/metrics"
	"github.com/aatumaykin/iliassync/internal/scheduler"
	"github.com/aatumaykin/iliassync/internal/syncer"
)

// Downloader refreshes the local mirror.
type Downloader interface {
	Download(ctx context.Context) error
}

// ReportUploader copies a single file to the remote.
type ReportUploader interface {
	CopyFile(ctx context.Context, localFile, destination string) error
}

// Config locates the cycle's inputs and outputs.
type Config struct {
	LocalRoot    string // directory the downloader writes to
	StateFile    string // uploaded next to the synced files when UploadReport is set
	UploadReport bool
}

// Result summarizes a finished cycle.
type Result struct {
	RunID    string
	Uploaded int
	Duration time.Duration
}

// Pipeline wires the downloader, planner and uploader together. Cycles
// never overlap: a cycle triggered while another runs waits for it.
type Pipeline struct {
	mu         sync.Mutex
	downloader Downloader
	planner    *syncer.Planner
	uploader   syncer.Uploader
	report     ReportUploader
	cfg        Config
	metrics    *metrics.Metrics
	logger     *logger.Logger
}

// New creates a pipeline.
func New(d Downloader, planner *syncer.Planner, uploader syncer.Uploader, report ReportUploader, cfg Config, log *logger.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		downloader: d,
		planner:    planner,
		uploader:   uploader,
		report:     report,
		cfg:        cfg,
		metrics:    m,
		logger:     log,
	}
}

// Run downloads, uploads whatever is new and publishes the state report.
// A failed download aborts the cycle before anything is uploaded.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	res := Result{RunID: uuid.NewString()}
	log := p.logger.With(logger.Field{Key: "run_id", Value: res.RunID})

	log.Info("sync cycle started")

	if err := p.downloader.Download(ctx); err != nil {
		res.Duration = time.Since(start)
		log.Error("sync cycle aborted", err)
		return res, fmt.Errorf("download: %w", err)
	}

	uploaded, syncErr := p.planner.Sync(ctx, p.cfg.LocalRoot, p.uploader)
	res.Uploaded = uploaded

	if p.cfg.UploadReport && p.report != nil {
		if err := p.report.CopyFile(ctx, p.cfg.StateFile, p.planner.Destination()); err != nil {
			log.Warn("state report upload failed",
				logger.Field{Key: "file", Value: p.cfg.StateFile},
				logger.Field{Key: "error", Value: err.Error()})
		}
	}

	res.Duration = time.Since(start)
	if syncErr != nil {
		log.Error("sync cycle failed", syncErr,
			logger.Field{Key: "duration", Value: res.Duration.String()})
		return res, fmt.Errorf("sync: %w", syncErr)
	}

	p.metrics.MarkCycleSucceeded(time.Now())
	log.Info("sync cycle completed",
		logger.Field{Key: "uploaded", Value: uploaded},
		logger.Field{Key: "duration", Value: res.Duration.String()})

	return res, nil
}

// Action adapts Run to a scheduled action.
func (p *Pipeline) Action() scheduler.Action {
	return func(ctx context.Context) error {
		_, err := p.Run(ctx)
		return err
	}
}
