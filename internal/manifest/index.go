package manifest

// seedKey is the (prefecture, city, seed_url) composite key used by the
// completed-seeds index.
func seedKey(prefecture, city, seedURL string) string {
	return prefecture + "|" + city + "|" + seedURL
}

// Index is the derived in-memory state the seed crawler and
// orchestrator consult for resume decisions. It is rebuilt once at
// startup by replaying the manifest file; nothing else ever reads the
// file directly.
type Index struct {
	CompletedSeeds map[string]Validator
	DownloadedURLs map[string]struct{}
	SavedPages     map[string]string
}

func newIndex() Index {
	return Index{
		CompletedSeeds: make(map[string]Validator),
		DownloadedURLs: make(map[string]struct{}),
		SavedPages:     make(map[string]string),
	}
}

// apply folds one event into the index, mirroring exactly what a
// resumed run needs to know: which seeds finished (with what
// validator), which URLs were already downloaded, and where each page
// was saved.
func (idx *Index) apply(evt Event) {
	switch evt.Kind {
	case KindSeedDone:
		if evt.IndexValidator != nil && !evt.IndexValidator.IsZero() {
			idx.CompletedSeeds[seedKey(evt.Prefecture, evt.City, evt.SeedURL)] = *evt.IndexValidator
		}
	case KindSeedSkipped:
		// completed_unchanged skips don't carry a fresh validator; the
		// prior seed_done entry (already in the index) remains valid.
	case KindDownloadedFile:
		idx.DownloadedURLs[evt.URL] = struct{}{}
	case KindPageSaved:
		idx.SavedPages[evt.URL] = evt.Path
	}
}

// CompletedValidator returns the stored validator for a seed that
// finished with seed_done on a prior run, if any.
func (idx Index) CompletedValidator(prefecture, city, seedURL string) (Validator, bool) {
	v, ok := idx.CompletedSeeds[seedKey(prefecture, city, seedURL)]
	return v, ok
}
