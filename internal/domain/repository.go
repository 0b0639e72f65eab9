package domain

import "time"

// BidParser turns a raw document into a normalized provider bid. All input
// formats share this one contract so the orchestrator treats them uniformly;
// there is no format type hierarchy.
type BidParser interface {
	Parse(file BidFile) (*ProviderBid, error)
}

// ReportBuilder renders spreadsheet artifacts from a finished result. It
// receives only already-computed rows and columns; the comparison core has
// no knowledge of spreadsheet encoding.
type ReportBuilder interface {
	BuildWorkbook(result *RunResult) ([]byte, error)
	BuildMatrixWorkbook(result *RunResult) ([]byte, error)
	BuildChapterWorkbook(result *RunResult) ([]byte, error)
}

// LimiterStore is a TTL-bounded store for per-client state, used by the
// rate-limit middleware. Entries expire after the configured TTL. GetOrSet
// must be atomic so concurrent first requests share a single entry.
type LimiterStore interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	GetOrSet(key string, value any, ttl time.Duration) any
	Size() int
}
