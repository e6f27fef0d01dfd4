package metadata

import (
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/go-logfmt/logfmt"
)

// Recorder is the Sink implementation used outside tests. It writes one
// logfmt line per event to an underlying io.Writer (the CLI passes
// stderr) and is safe for concurrent use by many
// worker goroutines.
type Recorder struct {
	mu     sync.Mutex
	enc    *logfmt.Encoder
	closer io.Closer
	now    func() time.Time
}

// NewRecorder wraps w in a logfmt encoder. If w also implements
// io.Closer, Close releases it.
func NewRecorder(w io.Writer) *Recorder {
	closer, _ := w.(io.Closer)
	return &Recorder{
		enc:    logfmt.NewEncoder(w),
		closer: closer,
		now:    time.Now,
	}
}

func (r *Recorder) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Recorder) emit(level, msg string, kv []interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pairs := append([]interface{}{
		"time", r.now().UTC().Format(time.RFC3339Nano),
		"level", level,
		"msg", msg,
	}, kv...)

	_ = r.enc.EncodeKeyvals(pairs...)
	_ = r.enc.EndRecord()
}

func (r *Recorder) RecordFetch(event FetchEvent) {
	r.emit("info", "fetch", []interface{}{
		"url", event.FetchURL,
		"status", event.HTTPStatus,
		"duration_ms", event.Duration.Milliseconds(),
		"content_type", event.ContentType,
		"retry_count", event.RetryCount,
		"depth", event.CrawlDepth,
	})
}

func (r *Recorder) RecordAssetFetch(event AssetFetchEvent) {
	r.emit("info", "asset_fetch", []interface{}{
		"url", event.FetchURL,
		"status", event.HTTPStatus,
		"duration_ms", event.Duration.Milliseconds(),
		"retry_count", event.RetryCount,
	})
}

func (r *Recorder) RecordError(record ErrorRecord) {
	kv := []interface{}{
		"package", record.PackageName,
		"action", record.Action,
		"cause", record.Cause.String(),
		"error", record.ErrorString,
	}
	for _, a := range record.Attrs {
		kv = append(kv, string(a.Key), a.Value)
	}
	r.emit("error", "error", kv)
}

func (r *Recorder) RecordArtifact(kind ArtifactKind, path string, attrs []Attribute) {
	kv := []interface{}{"kind", string(kind), "path", path}
	for _, a := range attrs {
		kv = append(kv, string(a.Key), a.Value)
	}
	r.emit("info", "artifact", kv)
}

func (r *Recorder) RecordRobotsDenied(host, pathPrefix, url string) {
	r.emit("warn", "robots_denied", []interface{}{
		"host", host,
		"path_prefix", pathPrefix,
		"url", url,
	})
}

func (r *Recorder) RecordSeedLifecycle(action string, attrs []Attribute) {
	kv := []interface{}{"action", action}
	for _, a := range attrs {
		kv = append(kv, string(a.Key), a.Value)
	}
	r.emit("info", "seed_lifecycle", kv)
}

func (r *Recorder) RecordFinalCrawlStats(stats CrawlStats) {
	r.emit("info", "crawl_stats", []interface{}{
		"total_pages", stats.TotalPages,
		"total_errors", stats.TotalErrors,
		"total_assets", stats.TotalAssets,
		"duration_ms", strconv.FormatInt(stats.Duration.Milliseconds(), 10),
	})
}

var _ Sink = (*Recorder)(nil)
