// Package scrape is a client library for the BitTorrent tracker scrape
// protocol: given info hashes and tracker URLs, it concurrently queries
// every (hash, tracker) pair over HTTP or UDP (BEP 15) and returns
// per-hash seeder/leecher/download counts.
package scrape

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/cenkalti/scrape/internal/httpscrape"
	"github.com/cenkalti/scrape/internal/scheduler"
	"github.com/cenkalti/scrape/internal/stat"
	"github.com/cenkalti/scrape/internal/udpscrape"
)

// InfoHash is the 20-byte SHA-1 hash of a torrent's info dictionary.
type InfoHash [20]byte

// ErrInvalidInfoHash is returned by ParseInfoHash, and synchronously by the
// two entry points, when a hash string is not 40 hex characters.
type ErrInvalidInfoHash struct {
	Value string
}

func (e *ErrInvalidInfoHash) Error() string {
	return fmt.Sprintf("scrape: invalid info hash %q", e.Value)
}

// ParseInfoHash decodes a 40-character hex string into an InfoHash.
func ParseInfoHash(s string) (InfoHash, error) {
	var ih InfoHash
	if len(s) != 40 {
		return ih, &ErrInvalidInfoHash{Value: s}
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return ih, &ErrInvalidInfoHash{Value: s}
	}
	copy(ih[:], b)
	return ih, nil
}

// String returns the lowercase hex representation of i.
func (i InfoHash) String() string { return hex.EncodeToString(i[:]) }

// BatchItem pairs one hex-encoded info hash with the trackers it should be
// scraped from, the input shape BatchScrapeInfoHashes takes.
type BatchItem struct {
	InfoHash string
	Trackers []string
}

// ScrapeInfoHashes asks every tracker in trackers about every hash in
// infoHashes (a cartesian product) and returns the merged result, keyed by
// the caller's original hex strings. Every key of infoHashes is present in
// the result even if every tracker failed for it; a malformed hash is
// rejected synchronously before any network I/O.
func ScrapeInfoHashes(ctx context.Context, infoHashes []string, trackers []string, opts ...Option) (ScrapeResult, error) {
	keys, err := parseHashKeys(infoHashes)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	s := newScheduler(o)
	raw := s.ScrapeHashes(ctx, keys, trackers)
	return toScrapeResult(raw), nil
}

// BatchScrapeInfoHashes asks each tracker named in items exactly once, for
// the subset of hashes that named it (a reverse index), and returns the
// merged result keyed by the caller's original hex strings.
func BatchScrapeInfoHashes(ctx context.Context, items []BatchItem, opts ...Option) (ScrapeResult, error) {
	schedItems := make([]scheduler.Item, len(items))
	for i, item := range items {
		key, err := parseHashKey(item.InfoHash)
		if err != nil {
			return nil, err
		}
		schedItems[i] = scheduler.Item{Hash: key, Trackers: item.Trackers}
	}
	o := buildOptions(opts)
	s := newScheduler(o)
	raw := s.BatchScrapeHashes(ctx, schedItems)
	return toScrapeResult(raw), nil
}

func parseHashKeys(hexHashes []string) ([]scheduler.HashKey, error) {
	keys := make([]scheduler.HashKey, len(hexHashes))
	for i, h := range hexHashes {
		key, err := parseHashKey(h)
		if err != nil {
			return nil, err
		}
		keys[i] = key
	}
	return keys, nil
}

func parseHashKey(hexHash string) (scheduler.HashKey, error) {
	ih, err := ParseInfoHash(hexHash)
	if err != nil {
		return scheduler.HashKey{}, err
	}
	return scheduler.HashKey{Raw: [20]byte(ih), Key: hexHash}, nil
}

func newScheduler(o *options) *scheduler.Scheduler {
	http := &httpscrape.Client{Timeout: o.httpTimeout}
	udp := &udpscrape.Client{RetryPolicy: o.retryPolicy, BatchSize: o.udpBatchSize}
	var udpScraper scheduler.UDPScraper = udp
	if o.udpTimeout > 0 {
		udpScraper = &timeoutBoundUDPClient{client: udp, timeout: o.udpTimeout}
	}
	return scheduler.New(http, udpScraper)
}

// timeoutBoundUDPClient wraps a udpscrape.Client with a hard per-call
// deadline, on top of whatever its retry policy already allows, so
// WithUDPTimeout can cut a tracker task short even mid-retransmission.
type timeoutBoundUDPClient struct {
	client  *udpscrape.Client
	timeout time.Duration
}

func (c *timeoutBoundUDPClient) Scrape(ctx context.Context, trackerURL string, hashes [][20]byte) ([]stat.Stat, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Scrape(ctx, trackerURL, hashes)
}

func toScrapeResult(raw scheduler.Result) ScrapeResult {
	result := make(ScrapeResult, len(raw))
	for hash, entries := range raw {
		stats := make([]TrackerStats, len(entries))
		for i, e := range entries {
			stats[i] = TrackerStats{
				TrackerURL: e.TrackerURL,
				Seeders:    e.Stat.Seeders,
				Peers:      e.Stat.Peers,
				Complete:   e.Stat.Complete,
			}
		}
		result[hash] = stats
	}
	return result
}
