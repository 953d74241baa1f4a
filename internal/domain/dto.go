package domain

// Format is the requested output container.
type Format string

const (
	FormatMP3 Format = "mp3"
	FormatMP4 Format = "mp4"
)

// Extension returns the enforced file extension for the format.
func (f Format) Extension() string {
	if f == FormatMP3 {
		return ".mp3"
	}
	return ".mp4"
}

// DownloadRequest is the body of a download creation request.
type DownloadRequest struct {
	URL    string `json:"url" validate:"required,url"`
	Format Format `json:"format" validate:"required,oneof=mp3 mp4"`
}

// DownloadResponse is returned when a job has been accepted.
type DownloadResponse struct {
	Success    bool   `json:"success"`
	DownloadID string `json:"download_id"`
}

// FileEntry describes one file in the shared download directory.
type FileEntry struct {
	Name string `json:"name"`
	Size string `json:"size"`
	Date string `json:"date"`
	URL  string `json:"url"`
}
