package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linshen005/youtube-downloader-backend/internal/config"
	"github.com/linshen005/youtube-downloader-backend/internal/domain"
	errpkg "github.com/linshen005/youtube-downloader-backend/internal/errors"
	"github.com/linshen005/youtube-downloader-backend/internal/registry"
	"github.com/linshen005/youtube-downloader-backend/internal/storage"
)

const testURL = "https://www.youtube.com/watch?v=abc"

// fakeTool stands in for yt-dlp: it emits scripted progress events and drops a
// file into the destination directory.
type fakeTool struct {
	ffmpeg      bool
	title       string
	titleErr    error
	downloadErr error
	outputName  string
	events      []domain.ProgressEvent
}

func (f *fakeTool) FFmpegAvailable() bool { return f.ffmpeg }

func (f *fakeTool) FetchTitle(ctx context.Context, url string) (string, error) {
	if f.titleErr != nil {
		return "", f.titleErr
	}
	return f.title, nil
}

func (f *fakeTool) Download(ctx context.Context, url string, format domain.Format, destDir string, onProgress func(domain.ProgressEvent)) error {
	for _, event := range f.events {
		onProgress(event)
	}
	if f.downloadErr != nil {
		return f.downloadErr
	}
	if f.outputName != "" {
		if err := os.WriteFile(filepath.Join(destDir, f.outputName), []byte("media bytes"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func newTestService(t *testing.T, tool MediaTool) (*DownloadService, *registry.Registry, *config.Config) {
	t.Helper()

	cfg := &config.Config{
		WorkerPoolSize:  2,
		DownloadDir:     t.TempDir(),
		TempDir:         t.TempDir(),
		DownloadTimeout: time.Minute,
		MetadataTimeout: time.Minute,
	}
	reg := registry.New()
	svc := NewDownloadService(reg, storage.NewFileStorage(cfg.DownloadDir), tool, cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		svc.Shutdown(ctx)
	})
	return svc, reg, cfg
}

func waitTerminal(t *testing.T, reg *registry.Registry, id string) domain.Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job := reg.Get(id)
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state: %+v", id, reg.Get(id))
	return domain.Job{}
}

func TestStart_RejectsInvalidInput(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeTool{ffmpeg: true})

	_, err := svc.Start("", domain.FormatMP4, "en")
	assert.ErrorIs(t, err, errpkg.ErrEmptyURL)

	_, err = svc.Start(testURL, "avi", "en")
	assert.ErrorIs(t, err, errpkg.ErrUnsupportedFormat)
}

func TestStart_MP3WithoutFFmpegFailsFast(t *testing.T) {
	svc, reg, _ := newTestService(t, &fakeTool{ffmpeg: false})

	_, err := svc.Start(testURL, domain.FormatMP3, "en")
	assert.ErrorIs(t, err, errpkg.ErrFFmpegMissing)

	// Rejected requests must never enter the registry.
	assert.Equal(t, 0, reg.Len())
}

func TestStart_ReturnsImmediatelyWithStarting(t *testing.T) {
	block := make(chan struct{})
	tool := &blockingTool{release: block}
	svc, reg, _ := newTestService(t, tool)

	id, err := svc.Start(testURL, domain.FormatMP4, "en")
	require.NoError(t, err)

	job := reg.Get(id)
	assert.Equal(t, domain.StatusStarting, job.Status)
	assert.Equal(t, "0%", job.Percent)
	close(block)
}

// blockingTool parks in FetchTitle until released.
type blockingTool struct {
	release chan struct{}
}

func (b *blockingTool) FFmpegAvailable() bool { return true }

func (b *blockingTool) FetchTitle(ctx context.Context, url string) (string, error) {
	<-b.release
	return "video", nil
}

func (b *blockingTool) Download(ctx context.Context, url string, format domain.Format, destDir string, onProgress func(domain.ProgressEvent)) error {
	return nil
}

func TestJob_SuccessfulLifecycle(t *testing.T) {
	tool := &fakeTool{
		ffmpeg:     true,
		title:      "My Video",
		outputName: "My Video.mp4",
		events: []domain.ProgressEvent{
			{Kind: domain.ProgressDownloading, Downloaded: 50, Total: 100, Speed: 1024, ETA: 3},
			{Kind: domain.ProgressFinished},
		},
	}
	svc, reg, cfg := newTestService(t, tool)

	id, err := svc.Start(testURL, domain.FormatMP4, "en")
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	assert.Equal(t, domain.StatusCompleted, job.Status)
	assert.Equal(t, "100%", job.Percent)
	assert.Equal(t, "Download complete", job.Message)

	require.NotNil(t, job.Result)
	assert.True(t, strings.HasSuffix(job.Result.Name, ".mp4"))
	assert.Contains(t, job.Result.Name, "My_Video")
	assert.Contains(t, job.Result.Name, id[:8])
	assert.Equal(t, "/api/download/"+job.Result.Name, job.Result.URL)
	assert.Equal(t, "11 B", job.Result.Size)

	// File is in the shared directory; the temp dir is removed after the
	// terminal update, so poll for it.
	_, err = os.Stat(job.Result.Path)
	assert.NoError(t, err)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(cfg.TempDir, id))
		return os.IsNotExist(err)
	}, time.Second, 5*time.Millisecond)
}

func TestJob_ProgressMapping(t *testing.T) {
	tool := &fakeTool{
		ffmpeg: true,
		title:  "v",
	}
	svc, reg, _ := newTestService(t, tool)

	id, err := svc.Start(testURL, domain.FormatMP4, "en")
	require.NoError(t, err)
	waitTerminal(t, reg, id)

	job := &downloadJob{id: id, language: "en"}

	svc.applyProgress(job, domain.ProgressEvent{Kind: domain.ProgressDownloading, Downloaded: 50, Total: 100})
	got := reg.Get(id)
	assert.Equal(t, domain.StatusDownloading, got.Status)
	assert.Equal(t, "50.0%", got.Percent)
	assert.Equal(t, int64(50), got.Downloaded)
	assert.Equal(t, int64(100), got.Total)

	// Unknown total leaves the percent untouched.
	svc.applyProgress(job, domain.ProgressEvent{Kind: domain.ProgressDownloading, Downloaded: 80})
	got = reg.Get(id)
	assert.Equal(t, "50.0%", got.Percent)
	assert.Equal(t, int64(80), got.Downloaded)
	assert.Equal(t, int64(100), got.Total)

	svc.applyProgress(job, domain.ProgressEvent{Kind: domain.ProgressFinished})
	got = reg.Get(id)
	assert.Equal(t, domain.StatusProcessing, got.Status)
	assert.Equal(t, "100%", got.Percent)
	assert.Equal(t, "Processing...", got.Message)
}

func TestJob_NoOutputFileIsError(t *testing.T) {
	tool := &fakeTool{
		ffmpeg: true,
		title:  "Empty Result",
		events: []domain.ProgressEvent{{Kind: domain.ProgressFinished}},
		// outputName unset: clean exit without any file in the temp dir.
	}
	svc, reg, _ := newTestService(t, tool)

	id, err := svc.Start(testURL, domain.FormatMP4, "en")
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	assert.Equal(t, domain.StatusError, job.Status)
	assert.Equal(t, "Download completed but no file found", job.Message)
	assert.Nil(t, job.Result)
}

func TestJob_NoOutputFileIsErrorLocalized(t *testing.T) {
	tool := &fakeTool{ffmpeg: true, title: "t"}
	svc, reg, _ := newTestService(t, tool)

	id, err := svc.Start(testURL, domain.FormatMP4, "zh")
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	assert.Equal(t, domain.StatusError, job.Status)
	assert.Equal(t, "下载完成但未找到文件", job.Message)
}

func TestJob_ToolFailureIsError(t *testing.T) {
	tool := &fakeTool{
		ffmpeg:      true,
		title:       "t",
		downloadErr: fmt.Errorf("yt-dlp error: HTTP Error 403"),
	}
	svc, reg, _ := newTestService(t, tool)

	id, err := svc.Start(testURL, domain.FormatMP4, "en")
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	assert.Equal(t, domain.StatusError, job.Status)
	assert.Contains(t, job.Message, "HTTP Error 403")
}

func TestJob_MetadataFailureIsError(t *testing.T) {
	tool := &fakeTool{
		ffmpeg:   true,
		titleErr: fmt.Errorf("yt-dlp metadata error: unsupported URL"),
	}
	svc, reg, _ := newTestService(t, tool)

	id, err := svc.Start(testURL, domain.FormatMP4, "en")
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	assert.Equal(t, domain.StatusError, job.Status)
	assert.Contains(t, job.Message, "unsupported URL")
}

func TestJob_ExtensionEnforcedByRename(t *testing.T) {
	tool := &fakeTool{
		ffmpeg:     true,
		title:      "song",
		outputName: "song.opus",
	}
	svc, reg, _ := newTestService(t, tool)

	id, err := svc.Start(testURL, domain.FormatMP3, "en")
	require.NoError(t, err)

	job := waitTerminal(t, reg, id)
	require.Equal(t, domain.StatusCompleted, job.Status)
	assert.True(t, strings.HasSuffix(job.Result.Name, ".mp3"), "got %s", job.Result.Name)
}

func TestJob_ConcurrentJobsDoNotCollide(t *testing.T) {
	tool := &fakeTool{
		ffmpeg:     true,
		title:      "Same Title",
		outputName: "Same Title.mp4",
	}
	svc, reg, _ := newTestService(t, tool)

	id1, err := svc.Start(testURL, domain.FormatMP4, "en")
	require.NoError(t, err)
	id2, err := svc.Start(testURL, domain.FormatMP4, "en")
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	job1 := waitTerminal(t, reg, id1)
	job2 := waitTerminal(t, reg, id2)

	require.Equal(t, domain.StatusCompleted, job1.Status)
	require.Equal(t, domain.StatusCompleted, job2.Status)
	assert.NotEqual(t, job1.Result.Name, job2.Result.Name)

	_, err = os.Stat(job1.Result.Path)
	assert.NoError(t, err)
	_, err = os.Stat(job2.Result.Path)
	assert.NoError(t, err)
}

func TestShutdown_RejectsNewJobs(t *testing.T) {
	tool := &fakeTool{ffmpeg: true, title: "t", outputName: "t.mp4"}
	svc, _, _ := newTestService(t, tool)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))

	_, err := svc.Start(testURL, domain.FormatMP4, "en")
	assert.Error(t, err)
}

func TestShutdown_LeavesNoJobStuck(t *testing.T) {
	release := make(chan struct{})
	tool := &blockingTool{release: release}

	cfg := &config.Config{
		WorkerPoolSize:  1,
		DownloadDir:     t.TempDir(),
		TempDir:         t.TempDir(),
		DownloadTimeout: time.Minute,
		MetadataTimeout: time.Minute,
	}
	reg := registry.New()
	svc := NewDownloadService(reg, storage.NewFileStorage(cfg.DownloadDir), tool, cfg)

	// One job occupies the single worker slot, the rest pile up in the
	// queue behind it.
	ids := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		id, err := svc.Start(testURL, domain.FormatMP4, "en")
		require.NoError(t, err)
		ids = append(ids, id)
	}

	shutdownErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		shutdownErr <- svc.Shutdown(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, <-shutdownErr)

	// Every accepted job must end up terminal: processed, or failed with
	// a shutdown error. None may sit at starting forever.
	for _, id := range ids {
		job := reg.Get(id)
		assert.True(t, job.Status.Terminal(), "job %s left at %s", id, job.Status)
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "50.0%", FormatPercent(50, 100))
	assert.Equal(t, "33.3%", FormatPercent(1, 3))
	assert.Equal(t, "100.0%", FormatPercent(100, 100))
}

func TestSafeBaseName(t *testing.T) {
	assert.Equal(t, "My_Video", safeBaseName("My Video"))
	assert.Equal(t, "clip____HD", safeBaseName(`clip:*?"HD`))
	assert.Equal(t, "download", safeBaseName("视频"))
	assert.Equal(t, "a.b-c_d", safeBaseName("a.b-c_d"))
}
