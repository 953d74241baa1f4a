package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DownloadsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_downloads_started_total",
		Help: "Total number of download jobs accepted",
	})

	DownloadsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_downloads_completed_total",
		Help: "Total number of download jobs completed successfully",
	})

	DownloadsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_downloads_failed_total",
		Help: "Total number of download jobs that ended in error",
	})

	DownloadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "video_downloader_download_duration_seconds",
		Help:    "Download job duration in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	DownloadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_download_bytes_total",
		Help: "Total bytes of finalized output files",
	})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "video_downloader_active_jobs",
		Help: "Number of jobs currently being processed",
	})

	FilesDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_files_deleted_total",
		Help: "Total number of files removed by the retention sweeper",
	})

	FilesServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "video_downloader_files_served_total",
		Help: "Total number of file retrieval requests served",
	})
)
