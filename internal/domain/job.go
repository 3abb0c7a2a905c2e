package domain

// TraversalTask is one pending folder waiting to be walked
type TraversalTask struct {
	// FolderID is the remote folder to list
	FolderID string

	// LocalPath is the mirrored destination directory
	LocalPath string

	// Depth is 0 for the root folder
	Depth int
}

// DownloadJob is one file transfer within a folder level
type DownloadJob struct {
	FileID    string
	FileName  string
	LocalPath string

	// Metadata carried over from the listing
	MimeType string
	Size     int64
	MD5      string
}

// NewDownloadJob creates a job for a listed file written to localPath
func NewDownloadJob(entry RemoteEntry, localPath string) DownloadJob {
	return DownloadJob{
		FileID:    entry.ID,
		FileName:  entry.Name,
		LocalPath: localPath,
		MimeType:  entry.MimeType,
		Size:      entry.Size,
		MD5:       entry.MD5,
	}
}

// FetchOutcome is the terminal state of a download job
type FetchOutcome int

const (
	OutcomeDownloaded FetchOutcome = iota
	OutcomeSkipped
	OutcomeFailed
)

// String returns the string representation of the outcome
func (o FetchOutcome) String() string {
	switch o {
	case OutcomeDownloaded:
		return "downloaded"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchResult reports how a single job ended
type FetchResult struct {
	Job     DownloadJob
	Outcome FetchOutcome

	// Bytes written to disk (0 unless downloaded)
	Bytes int64

	// Err is set only when Outcome is OutcomeFailed
	Err error
}
