package scrape

import "fmt"

// TrackerStats is one tracker's answer for one info hash.
type TrackerStats struct {
	TrackerURL string
	Seeders    uint32
	Peers      uint32
	Complete   uint32
}

// String renders s for log-friendly diagnostics.
func (s TrackerStats) String() string {
	return fmt.Sprintf("%s seeders=%d peers=%d complete=%d", s.TrackerURL, s.Seeders, s.Peers, s.Complete)
}

// ScrapeResult maps a hex-encoded info hash, bytewise identical to the
// string the caller supplied, to every TrackerStats any tracker returned
// for it. Every input hash is present as a key even if no tracker answered
// for it, in which case its value is an empty (possibly nil) slice.
type ScrapeResult map[string][]TrackerStats

// FindMaxSeeders reduces a ScrapeResult to the maximum seeder count seen
// for each hash, or 0 for a hash with no TrackerStats at all.
func FindMaxSeeders(result ScrapeResult) map[string]uint32 {
	max := make(map[string]uint32, len(result))
	for hash, stats := range result {
		var m uint32
		for _, s := range stats {
			if s.Seeders > m {
				m = s.Seeders
			}
		}
		max[hash] = m
	}
	return max
}
