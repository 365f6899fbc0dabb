// Package stat holds the per-tracker scrape counters shared by the HTTP
// and UDP scrape clients, kept separate from the root package so that
// internal/httpscrape, internal/udpscrape and internal/scheduler can share
// it without importing the root package.
package stat

// Stat is one tracker's answer for one info hash.
type Stat struct {
	Seeders  uint32
	Peers    uint32
	Complete uint32
}
