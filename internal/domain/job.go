package domain

import "time"

// JobStatus represents the current state of a download job.
type JobStatus string

const (
	StatusStarting    JobStatus = "starting"
	StatusDownloading JobStatus = "downloading"
	StatusProcessing  JobStatus = "processing"
	StatusCompleted   JobStatus = "completed"
	StatusError       JobStatus = "error"
	StatusNotFound    JobStatus = "not_found"
)

// Terminal reports whether no further transitions can occur from s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Job is the progress record for one download request. It is created when the
// request is accepted and mutated only by the background worker processing it.
type Job struct {
	ID         string    `json:"id"`
	Status     JobStatus `json:"status"`
	Percent    string    `json:"percent"`
	Message    string    `json:"message,omitempty"`
	Language   string    `json:"-"`
	Downloaded int64     `json:"downloaded,omitempty"`
	Total      int64     `json:"total,omitempty"`
	Speed      float64   `json:"speed,omitempty"`
	ETA        int64     `json:"eta,omitempty"`
	Result     *FileInfo `json:"file,omitempty"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// FileInfo describes a finalized output file.
type FileInfo struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size string `json:"size"`
	URL  string `json:"url"`
}

// JobUpdate is a partial update merged into a job record. Nil fields are left
// untouched; last write wins per field.
type JobUpdate struct {
	Status     *JobStatus
	Percent    *string
	Message    *string
	Downloaded *int64
	Total      *int64
	Speed      *float64
	ETA        *int64
	Result     *FileInfo
}
