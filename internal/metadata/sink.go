package metadata

// Sink is the write side of the Metadata Recorder, consulted by every
// other component purely for observability. No component may branch on
// a Sink call's return value — there is none — which is what keeps the
// recorder decoupled from scheduling.
type Sink interface {
	RecordFetch(event FetchEvent)
	RecordAssetFetch(event AssetFetchEvent)
	RecordError(record ErrorRecord)
	RecordArtifact(kind ArtifactKind, path string, attrs []Attribute)
	RecordRobotsDenied(host, pathPrefix, url string)
	RecordSeedLifecycle(action string, attrs []Attribute)
	RecordFinalCrawlStats(stats CrawlStats)
	// Close flushes and releases the underlying log destination, if any.
	Close() error
}

// NopSink discards every record. Useful in tests that don't care about
// the observability stream but still need to satisfy a Sink parameter.
type NopSink struct{}

func (NopSink) RecordFetch(FetchEvent)                         {}
func (NopSink) RecordAssetFetch(AssetFetchEvent)                {}
func (NopSink) RecordError(ErrorRecord)                         {}
func (NopSink) RecordArtifact(ArtifactKind, string, []Attribute) {}
func (NopSink) RecordRobotsDenied(string, string, string)        {}
func (NopSink) RecordSeedLifecycle(string, []Attribute)          {}
func (NopSink) RecordFinalCrawlStats(CrawlStats)                 {}
func (NopSink) Close() error                                     { return nil }

var _ Sink = NopSink{}
