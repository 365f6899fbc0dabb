// Package scheduler implements the fan-out across trackers: grouping work
// by tracker URL, dispatching one concurrent task per tracker via
// golang.org/x/sync/errgroup, and merging each task's per-hash stats back
// into a result keyed by the caller's original hash keys. A failing
// tracker task contributes nothing and never aborts the others, mirroring
// the isolation internal/tracker/tier.go gives each Tracker in a Tier.
package scheduler

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cenkalti/scrape/internal/logger"
	"github.com/cenkalti/scrape/internal/metrics"
	"github.com/cenkalti/scrape/internal/stat"
)

// HashKey identifies an info hash by both its raw bytes (what the wire
// protocols need) and the caller's original key string (what the result
// map must be indexed by, byte for byte).
type HashKey struct {
	Raw [20]byte
	Key string
}

// Item pairs one hash with the trackers it should be scraped from, the
// shape batch_scrape_info_hashes takes as input.
type Item struct {
	Hash     HashKey
	Trackers []string
}

// TrackerStats is one tracker's answer for one hash, carrying the
// tracker's URL alongside its counters so the merged result can report
// which tracker each entry came from.
type TrackerStats struct {
	TrackerURL string
	Stat       stat.Stat
}

// HTTPScraper and UDPScraper are the narrow interfaces the scheduler needs
// from internal/httpscrape.Client and internal/udpscrape.Client, kept
// narrow so tests can supply fakes without any real I/O.
type HTTPScraper interface {
	Scrape(ctx context.Context, trackerURL string, hashes [][20]byte) ([][20]byte, []stat.Stat, error)
}

type UDPScraper interface {
	Scrape(ctx context.Context, trackerURL string, hashes [][20]byte) ([]stat.Stat, error)
}

// Scheduler dispatches tracker tasks and merges their results.
type Scheduler struct {
	HTTP HTTPScraper
	UDP  UDPScraper
}

// New returns a Scheduler using the given scraper implementations.
func New(http HTTPScraper, udp UDPScraper) *Scheduler {
	return &Scheduler{HTTP: http, UDP: udp}
}

// Result is the merged mapping from the caller's hash key to every
// TrackerStats any tracker returned for it, pre-populated with an empty
// list for every input hash so key totality holds even when every tracker
// fails.
type Result map[string][]TrackerStats

// ScrapeHashes implements the cartesian-product entry point: every one of
// trackers is asked about every one of hashes.
func (s *Scheduler) ScrapeHashes(ctx context.Context, hashes []HashKey, trackers []string) Result {
	raw := make([][20]byte, len(hashes))
	for i, h := range hashes {
		raw[i] = h.Raw
	}

	result := make(Result, len(hashes))
	for _, h := range hashes {
		result[h.Key] = nil
	}

	perTracker := s.dispatch(ctx, trackers, func(string) [][20]byte { return raw })
	mergeAll(result, hashes, perTracker)
	return result
}

// trackerTaskResult pairs one dispatched tracker task with its answers,
// keeping one entry per input tracker position (not deduplicated by URL)
// so that a caller who lists the same tracker URL twice gets two
// independent contributions merged in, rather than one silently
// clobbering the other.
type trackerTaskResult struct {
	tracker string
	answers []trackerAnswer
}

// BatchScrapeHashes implements the reverse-index entry point: each tracker
// in items is queried exactly once, with only the hashes that named it.
func (s *Scheduler) BatchScrapeHashes(ctx context.Context, items []Item) Result {
	result := make(Result, len(items))
	hashesByTracker := make(map[string][]HashKey)
	trackerOrder := make([]string, 0)
	for _, item := range items {
		result[item.Hash.Key] = nil
		for _, t := range item.Trackers {
			if _, seen := hashesByTracker[t]; !seen {
				trackerOrder = append(trackerOrder, t)
			}
			hashesByTracker[t] = append(hashesByTracker[t], item.Hash)
		}
	}

	trackers := trackerOrder
	hashesFor := func(t string) [][20]byte {
		keys := hashesByTracker[t]
		raw := make([][20]byte, len(keys))
		for i, k := range keys {
			raw[i] = k.Raw
		}
		return raw
	}

	perTracker := s.dispatch(ctx, trackers, hashesFor)
	for _, tr := range perTracker {
		mergeAll(result, hashesByTracker[tr.tracker], []trackerTaskResult{tr})
	}
	return result
}

// trackerAnswer is one tracker's reply for one hash, by raw hash bytes, so
// mergeAll can look it up regardless of which entry point produced it.
type trackerAnswer struct {
	hash [20]byte
	stat stat.Stat
}

// dispatch runs one errgroup task per tracker. hashesFor selects which raw
// hashes that tracker should be asked about (the full set for
// ScrapeHashes, a subset for BatchScrapeHashes). A task's error is logged
// and otherwise discarded: the group's own Wait error is never surfaced,
// preserving "the top-level call never raises on per-tracker failure."
func (s *Scheduler) dispatch(ctx context.Context, trackers []string, hashesFor func(string) [][20]byte) []trackerTaskResult {
	log := logger.New("scheduler")
	g, gctx := errgroup.WithContext(ctx)

	results := make([]trackerTaskResult, len(trackers))
	for i, tracker := range trackers {
		results[i].tracker = tracker
	}

	for i, tracker := range trackers {
		i, tracker := i, tracker
		g.Go(func() error {
			hashes := hashesFor(tracker)
			if len(hashes) == 0 {
				return nil
			}
			metrics.Default.TasksAttempted.Inc(1)
			answers, err := s.scrapeOne(gctx, tracker, hashes)
			if err != nil {
				metrics.Default.TasksFailed.Inc(1)
				log.Debugf("tracker %q failed: %v", tracker, err)
				return nil
			}
			metrics.Default.TasksSucceeded.Inc(1)
			results[i].answers = answers
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Scheduler) scrapeOne(ctx context.Context, trackerURL string, hashes [][20]byte) ([]trackerAnswer, error) {
	if strings.HasPrefix(trackerURL, "udp://") {
		stats, err := s.UDP.Scrape(ctx, trackerURL, hashes)
		if err != nil {
			return nil, err
		}
		answers := make([]trackerAnswer, len(stats))
		for i, st := range stats {
			answers[i] = trackerAnswer{hash: hashes[i], stat: st}
		}
		return answers, nil
	}

	found, stats, err := s.HTTP.Scrape(ctx, trackerURL, hashes)
	if err != nil {
		return nil, err
	}
	answers := make([]trackerAnswer, len(stats))
	for i, st := range stats {
		answers[i] = trackerAnswer{hash: found[i], stat: st}
	}
	return answers, nil
}

// mergeAll appends every tracker's answers for the given hash keys into
// result, looking each answer up by raw hash bytes and reporting under the
// caller's original key string.
func mergeAll(result Result, keys []HashKey, perTracker []trackerTaskResult) {
	byHash := make(map[[20]byte]string, len(keys))
	for _, k := range keys {
		byHash[k.Raw] = k.Key
	}
	for _, tr := range perTracker {
		for _, a := range tr.answers {
			key, ok := byHash[a.hash]
			if !ok {
				continue
			}
			result[key] = append(result[key], TrackerStats{TrackerURL: tr.tracker, Stat: a.stat})
		}
	}
}
