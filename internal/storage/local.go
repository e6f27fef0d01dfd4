package storage

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kasumi-gikai/minutes-crawler/internal/metadata"
	"github.com/kasumi-gikai/minutes-crawler/pkg/failure"
	"github.com/kasumi-gikai/minutes-crawler/pkg/fileutil"
	"github.com/kasumi-gikai/minutes-crawler/pkg/hashutil"
)

const maxFilenameBytes = 200

// Sink is the Seed Crawler's persistence collaborator: page bodies go
// under pages/, payload downloads go under files/, both rooted at
// outdir/<prefecture>/<city>/ per the output directory layout.
type Sink interface {
	SavePage(prefecture, city string, pageURL url.URL, body []byte) (PageWriteResult, failure.ClassifiedError)
	DownloadFile(prefecture, city string, fileURL url.URL, body []byte, alreadyDownloaded, forceDownload bool) (FileWriteResult, failure.ClassifiedError)
}

// LocalSink writes to the local filesystem. Writes are serialized by a
// single mutex: the collision-suffix check (read-then-write) is not
// otherwise safe across concurrent workers that happen to derive the
// same base filename for two different URLs.
type LocalSink struct {
	outdir       string
	metadataSink metadata.Sink
	mu           sync.Mutex
}

func NewLocalSink(outdir string, metadataSink metadata.Sink) *LocalSink {
	return &LocalSink{outdir: outdir, metadataSink: metadataSink}
}

func (s *LocalSink) SavePage(prefecture, city string, pageURL url.URL, body []byte) (PageWriteResult, failure.ClassifiedError) {
	contentHash := hashutil.SHA256Hex(body)
	dir := filepath.Join(s.outdir, prefecture, city, "pages")
	baseName := deriveBaseName(pageURL, contentHash, ".html")

	s.mu.Lock()
	finalPath, err := resolveCollisionFreePath(dir, baseName, contentHash)
	if err == nil {
		err = fileutil.WriteFileAtomic(finalPath, body, 0o644)
	}
	s.mu.Unlock()

	if err != nil {
		s.recordWriteError("SavePage", pageURL.String(), err)
		return PageWriteResult{}, err
	}

	s.metadataSink.RecordArtifact(metadata.ArtifactPage, finalPath, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrURL, pageURL.String()),
		metadata.NewAttr(metadata.AttrPrefecture, prefecture),
		metadata.NewAttr(metadata.AttrCity, city),
	})
	return PageWriteResult{Path: finalPath, ContentSHA256: contentHash}, nil
}

func (s *LocalSink) DownloadFile(prefecture, city string, fileURL url.URL, body []byte, alreadyDownloaded, forceDownload bool) (FileWriteResult, failure.ClassifiedError) {
	if alreadyDownloaded && !forceDownload {
		return FileWriteResult{Skipped: true}, nil
	}

	contentHash := hashutil.SHA256Hex(body)
	dir := filepath.Join(s.outdir, prefecture, city, "files")
	baseName := deriveBaseName(fileURL, contentHash, "")

	s.mu.Lock()
	finalPath, err := resolveCollisionFreePath(dir, baseName, contentHash)
	if err == nil {
		err = fileutil.WriteFileAtomic(finalPath, body, 0o644)
	}
	s.mu.Unlock()

	if err != nil {
		s.recordWriteError("DownloadFile", fileURL.String(), err)
		return FileWriteResult{}, err
	}

	s.metadataSink.RecordArtifact(metadata.ArtifactFile, finalPath, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrURL, fileURL.String()),
		metadata.NewAttr(metadata.AttrPrefecture, prefecture),
		metadata.NewAttr(metadata.AttrCity, city),
	})
	return FileWriteResult{Path: finalPath, ContentSHA256: contentHash, Size: int64(len(body))}, nil
}

func (s *LocalSink) recordWriteError(action, urlStr string, err failure.ClassifiedError) {
	s.metadataSink.RecordError(metadata.ErrorRecord{
		PackageName: "storage",
		Action:      action,
		Cause:       metadata.CauseStorageFailure,
		ErrorString: err.Error(),
		ObservedAt:  time.Now(),
		Attrs:       []metadata.Attribute{metadata.NewAttr(metadata.AttrURL, urlStr)},
	})
}

// resolveCollisionFreePath finds the path under dir that baseName should
// be written to, appending _1, _2, ... when a file already exists there
// whose content hash differs from contentHash. A same-hash collision is
// treated as idempotent and reuses the existing path.
func resolveCollisionFreePath(dir, baseName, contentHash string) (string, failure.ClassifiedError) {
	if err := fileutil.EnsureDir(dir); err != nil {
		return "", err
	}

	ext := filepath.Ext(baseName)
	stem := strings.TrimSuffix(baseName, ext)

	for attempt := 0; ; attempt++ {
		candidateName := baseName
		if attempt > 0 {
			candidateName = fmt.Sprintf("%s_%d%s", stem, attempt, ext)
		}
		candidate := filepath.Join(dir, candidateName)

		existing, readErr := os.ReadFile(candidate)
		if os.IsNotExist(readErr) {
			return candidate, nil
		}
		if readErr != nil {
			return "", &StorageError{Message: readErr.Error(), Retryable: false, Cause: ErrCausePathError}
		}
		if hashutil.SHA256Hex(existing) == contentHash {
			return candidate, nil
		}
	}
}

// deriveBaseName turns the URL's last path segment into a safe filename,
// falling back to the content hash when the segment sanitizes to empty.
// defaultExt is appended only when the derived name has no extension of
// its own (used for pages, which otherwise wouldn't carry .html).
func deriveBaseName(u url.URL, contentHash, defaultExt string) string {
	segment := path.Base(u.Path)
	if segment == "." || segment == "/" || segment == "" {
		segment = contentHash
	}

	safe := sanitizeFilename(segment)
	if safe == "" {
		safe = contentHash
	}
	if defaultExt != "" && filepath.Ext(safe) == "" {
		safe += defaultExt
	}
	return safe
}

const forbiddenFilenameChars = `\/:*?"<>|`

// sanitizeFilename strips the characters disallowed on common filesystems
// plus control characters, then caps the result at 200 bytes of UTF-8.
func sanitizeFilename(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r < 0x20 || strings.ContainsRune(forbiddenFilenameChars, r) {
			continue
		}
		b.WriteRune(r)
	}
	return truncateUTF8(b.String(), maxFilenameBytes)
}

func truncateUTF8(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}

var _ Sink = (*LocalSink)(nil)
