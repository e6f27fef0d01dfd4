package storage

// PageWriteResult is what SavePage returns on success: the path it wrote
// and the content hash to stamp onto the page_saved manifest event.
type PageWriteResult struct {
	Path          string
	ContentSHA256 string
}

// FileWriteResult is what DownloadFile returns on success. Skipped is true
// when the URL was already present in the downloaded-URLs set and
// force_download was not set, in which case Path and ContentSHA256 are
// empty and the caller should emit only link_found, not downloaded_file.
type FileWriteResult struct {
	Path          string
	ContentSHA256 string
	Size          int64
	Skipped       bool
}
