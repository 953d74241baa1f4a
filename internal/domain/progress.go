package domain

// ProgressKind tags the shapes a progress callback from the external tool can
// take.
type ProgressKind string

const (
	ProgressDownloading ProgressKind = "downloading"
	ProgressFinished    ProgressKind = "finished"
	ProgressError       ProgressKind = "error"
)

// ProgressEvent is one callback from the external tool. Only the fields
// matching Kind are meaningful; missing numeric fields are zero.
type ProgressEvent struct {
	Kind       ProgressKind
	Downloaded int64
	Total      int64
	Speed      float64
	ETA        int64
	Message    string
}
