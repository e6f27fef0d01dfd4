package manifest

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/kasumi-gikai/minutes-crawler/internal/metadata"
	"github.com/kasumi-gikai/minutes-crawler/pkg/fileutil"
)

const defaultQueueCapacity = 1024

/*
Store is the Manifest Store: an append-only NDJSON event log with a
single writer goroutine. Producers call Append, which sends on a
buffered channel; a full channel blocks the caller (backpressure, per
§5's shared-resource policy). The writer flushes after every event.

On a write failure the event is logged via the metadata sink and
onFatal is invoked so the caller can drain in-flight work and exit 2.
*/
type Store struct {
	file   *os.File
	events chan Event
	done   chan struct{}

	metadataSink metadata.Sink
	onFatal      func(error)
}

// Open opens path for appending (creating it and its parent directory
// if necessary), truncating first when overwrite is true, and returns
// the Store together with the Index derived by replaying any existing
// content.
func Open(path string, overwrite bool, metadataSink metadata.Sink, onFatal func(error)) (*Store, Index, error) {
	if err := fileutil.EnsureDir(dirOf(path)); err != nil {
		return nil, Index{}, err
	}

	idx := newIndex()

	if !overwrite {
		if existing, err := os.Open(path); err == nil {
			idx = replay(existing, metadataSink)
			existing.Close()
		}
	}

	flags := os.O_APPEND | os.O_CREATE | os.O_WRONLY
	if overwrite {
		flags = os.O_TRUNC | os.O_CREATE | os.O_WRONLY
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, Index{}, &ManifestError{Message: err.Error(), Cause: ErrCauseOpenFailure}
	}

	s := &Store{
		file:         file,
		events:       make(chan Event, defaultQueueCapacity),
		done:         make(chan struct{}),
		metadataSink: metadataSink,
		onFatal:      onFatal,
	}
	go s.run()
	return s, idx, nil
}

func dirOf(path string) string {
	idx := len(path) - 1
	for idx >= 0 && path[idx] != '/' {
		idx--
	}
	if idx <= 0 {
		return "."
	}
	return path[:idx]
}

func replay(f *os.File, metadataSink metadata.Sink) Index {
	idx := newIndex()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	malformed := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var evt Event
		if err := json.Unmarshal(line, &evt); err != nil {
			malformed++
			continue
		}
		idx.apply(evt)
	}

	if malformed > 0 {
		metadataSink.RecordError(metadata.ErrorRecord{
			PackageName: "manifest",
			Action:      "replay",
			Cause:       metadata.CauseContentInvalid,
			ErrorString: "skipped malformed manifest lines",
			Attrs: []metadata.Attribute{
				metadata.NewAttr(metadata.AttrField, "malformed_line_count"),
			},
		})
	}

	return idx
}

// Append enqueues evt for the writer goroutine. Blocks when the queue
// is full, which is the crawler's deliberate backpressure mechanism.
func (s *Store) Append(evt Event) {
	s.events <- evt
}

// Close stops accepting new events, drains the queue, and closes the
// underlying file.
func (s *Store) Close() error {
	close(s.events)
	<-s.done
	return s.file.Close()
}

func (s *Store) run() {
	defer close(s.done)

	enc := json.NewEncoder(s.file)
	for evt := range s.events {
		if err := enc.Encode(evt); err != nil {
			s.recordWriteFailure(err)
			continue
		}
		if err := s.file.Sync(); err != nil {
			s.recordWriteFailure(err)
		}
	}
}

func (s *Store) recordWriteFailure(err error) {
	s.metadataSink.RecordError(metadata.ErrorRecord{
		PackageName: "manifest",
		Action:      "Store.run",
		Cause:       metadata.CauseStorageFailure,
		ErrorString: err.Error(),
	})
	if s.onFatal != nil {
		s.onFatal(&ManifestError{Message: err.Error(), Cause: ErrCauseWriteFailure})
	}
}
