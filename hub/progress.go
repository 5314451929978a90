package hub

// DownloadStatus of a file in a DownloadProgress report.
type DownloadStatus string

const (
	// StatusCached is reported once for a file already in the cache: nothing is downloaded.
	StatusCached DownloadStatus = "cached"

	// StatusDownloading is reported as the bytes of a file arrive, starting with 0 bytes.
	StatusDownloading DownloadStatus = "downloading"

	// StatusCompleted is reported once, after the file is in place in the cache.
	StatusCompleted DownloadStatus = "completed"
)

// DownloadProgress reports the progress of one file of Repo.DownloadFiles.
type DownloadProgress struct {
	File       string
	Downloaded int64

	// Total is the size of the file, or -1 if unknown.
	Total int64

	Status DownloadStatus
}

// Percent returns the percentage (0 to 100) downloaded, or -1 if the size is unknown.
func (p DownloadProgress) Percent() float64 {
	if p.Total <= 0 {
		if p.Status == StatusCompleted || p.Status == StatusCached {
			return 100
		}
		return -1
	}
	return float64(p.Downloaded) / float64(p.Total) * 100
}

// ProgressFunc receives the download progress reports. Files are downloaded in parallel, so it
// must be safe for concurrent use.
type ProgressFunc func(progress DownloadProgress)
