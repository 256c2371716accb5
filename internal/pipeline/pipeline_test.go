package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/iliassync/internal/logger"
	"github.com/aatumaykin/iliassync/internal/scheduler"
	"github.com/aatumaykin/iliassync/internal/syncer"
	"github.com/aatumaykin/iliassync/internal/syncstate"
	"github.com/aatumaykin/iliassync/internal/toolrun"
	"github.com/aatumaykin/iliassync/internal/trigger"
)

const (
	localRoot = "/work/output"
	stateFile = "/work/data/ilias_upload_report.json"
)

// fakeDownloader writes files into the mirror when it runs.
type fakeDownloader struct {
	fs    afero.Fs
	files []string
	err   error
	runs  int
}

func (d *fakeDownloader) Download(context.Context) error {
	d.runs++
	if d.err != nil {
		return d.err
	}
	for _, f := range d.files {
		if err := afero.WriteFile(d.fs, localRoot+"/"+f, []byte(f), 0644); err != nil {
			return err
		}
	}
	return nil
}

type fakeUploader struct {
	err     error
	batches [][]string
}

func (u *fakeUploader) UploadFiles(_ context.Context, _ string, files []string, _ string) error {
	u.batches = append(u.batches, files)
	return u.err
}

type fakeReport struct {
	err    error
	copied []string
}

func (r *fakeReport) CopyFile(_ context.Context, localFile, destination string) error {
	r.copied = append(r.copied, localFile+" -> "+destination)
	return r.err
}

type fixture struct {
	fs         afero.Fs
	downloader *fakeDownloader
	uploader   *fakeUploader
	report     *fakeReport
	pipeline   *Pipeline
}

func newFixture(t *testing.T, files ...string) *fixture {
	t.Helper()
	fsys := afero.NewMemMapFs()
	store := syncstate.NewStore(fsys, stateFile, logger.Discard())
	planner, err := syncer.NewPlanner(fsys, store, "ilias", logger.Discard())
	require.NoError(t, err)

	f := &fixture{
		fs:         fsys,
		downloader: &fakeDownloader{fs: fsys, files: files},
		uploader:   &fakeUploader{},
		report:     &fakeReport{},
	}
	f.pipeline = New(f.downloader, planner, f.uploader, f.report,
		Config{LocalRoot: localRoot, StateFile: stateFile, UploadReport: true},
		logger.Discard(), nil)
	return f
}

func TestPipeline_RunUploadsNewFilesAndReport(t *testing.T) {
	f := newFixture(t, "course/a.pdf", "course/b.pdf")

	res, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 2, res.Uploaded)
	assert.Equal(t, [][]string{{"course/a.pdf", "course/b.pdf"}}, f.uploader.batches)
	assert.Equal(t, []string{stateFile + " -> ilias"}, f.report.copied)

	res2, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res2.Uploaded)
	assert.NotEqual(t, res.RunID, res2.RunID)
	assert.Len(t, f.uploader.batches, 1)
}

func TestPipeline_DownloadFailureAbortsCycle(t *testing.T) {
	f := newFixture(t, "a.pdf")
	f.downloader.err = &toolrun.ToolError{Tool: "downloader", ExitCode: 1}

	_, err := f.pipeline.Run(context.Background())

	var toolErr *toolrun.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Empty(t, f.uploader.batches)
	assert.Empty(t, f.report.copied)

	exists, err := afero.Exists(f.fs, stateFile)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPipeline_UploadFailureIsReported(t *testing.T) {
	f := newFixture(t, "a.pdf")
	f.uploader.err = errors.New("quota exceeded")

	res, err := f.pipeline.Run(context.Background())

	var batchErr *syncer.UploadBatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, 0, res.Uploaded)
	assert.Len(t, f.report.copied, 1, "report upload is attempted regardless")
}

func TestPipeline_ReportFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, "a.pdf")
	f.report.err = errors.New("network down")

	res, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Uploaded)
}

func TestPipeline_ActionReturnsCycleError(t *testing.T) {
	f := newFixture(t)
	f.downloader.err = errors.New("boom")

	err := f.pipeline.Action()(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, f.downloader.runs)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPipeline_ScheduledFailureLoggedAsErrorOnce(t *testing.T) {
	out := &lockedBuffer{}
	log, err := logger.NewWithWriter(out, "debug", "json")
	require.NoError(t, err)

	f := newFixture(t, "a.pdf")
	f.downloader.err = &toolrun.ToolError{Tool: "downloader", ExitCode: 1}
	f.pipeline.logger = log

	sched := scheduler.New(log)
	_, err = sched.Add(scheduler.Task{Trigger: trigger.Once(time.Now().Add(-time.Second)), Action: f.pipeline.Action()})
	require.NoError(t, err)
	require.NoError(t, sched.Start(context.Background()))
	defer func() { _ = sched.Stop() }()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "scheduled action returned error")
	}, 2*time.Second, 20*time.Millisecond)

	logs := out.String()
	assert.Equal(t, 1, strings.Count(logs, `"level":"ERROR"`))
	assert.Contains(t, logs, `"msg":"sync cycle aborted"`)
	assert.Contains(t, logs, `"run_id"`)
}
