package crawler

import "sync"

// SharedState is the process-wide state every worker's Crawler reads and
// mutates while a run is in progress: the downloaded-URLs set from
// SPEC_FULL §4.8, seeded from the manifest's resumed index and grown as
// new files are written. One instance is shared by every worker in the
// orchestrator's pool.
type SharedState struct {
	mu             sync.Mutex
	downloadedURLs map[string]struct{}
}

// NewSharedState seeds the downloaded-URLs set from a resumed manifest
// index. downloadedURLs is the normalized-URL-string set the Manifest
// Store derived by replaying prior runs.
func NewSharedState(downloadedURLs map[string]struct{}) *SharedState {
	s := &SharedState{downloadedURLs: make(map[string]struct{}, len(downloadedURLs))}
	for k := range downloadedURLs {
		s.downloadedURLs[k] = struct{}{}
	}
	return s
}

func (s *SharedState) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.downloadedURLs[key]
	return ok
}

func (s *SharedState) MarkDownloaded(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloadedURLs[key] = struct{}{}
}
