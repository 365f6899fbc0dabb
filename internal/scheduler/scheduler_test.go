package scheduler

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cenkalti/scrape/internal/stat"
)

type fakeHTTP struct {
	scrape func(ctx context.Context, trackerURL string, hashes [][20]byte) ([][20]byte, []stat.Stat, error)
}

func (f *fakeHTTP) Scrape(ctx context.Context, trackerURL string, hashes [][20]byte) ([][20]byte, []stat.Stat, error) {
	return f.scrape(ctx, trackerURL, hashes)
}

type fakeUDP struct {
	scrape func(ctx context.Context, trackerURL string, hashes [][20]byte) ([]stat.Stat, error)
}

func (f *fakeUDP) Scrape(ctx context.Context, trackerURL string, hashes [][20]byte) ([]stat.Stat, error) {
	return f.scrape(ctx, trackerURL, hashes)
}

func hashKey(key string, b byte) HashKey {
	var raw [20]byte
	raw[0] = b
	return HashKey{Raw: raw, Key: key}
}

func TestScrapeHashesCartesianProduct(t *testing.T) {
	h1 := hashKey("h1", 1)
	h2 := hashKey("h2", 2)

	http := &fakeHTTP{scrape: func(ctx context.Context, trackerURL string, hashes [][20]byte) ([][20]byte, []stat.Stat, error) {
		require.Len(t, hashes, 2)
		return hashes, []stat.Stat{{Seeders: 1}, {Seeders: 2}}, nil
	}}

	s := New(http, &fakeUDP{})
	result := s.ScrapeHashes(context.Background(), []HashKey{h1, h2}, []string{"http://t1/announce", "http://t2/announce"})

	require.Len(t, result, 2)
	assert.Len(t, result["h1"], 2)
	assert.Len(t, result["h2"], 2)
	urls := []string{result["h1"][0].TrackerURL, result["h1"][1].TrackerURL}
	sort.Strings(urls)
	assert.Equal(t, []string{"http://t1/announce", "http://t2/announce"}, urls)
}

func TestScrapeHashesKeyTotalityOnFailure(t *testing.T) {
	h1 := hashKey("h1", 1)

	http := &fakeHTTP{scrape: func(ctx context.Context, trackerURL string, hashes [][20]byte) ([][20]byte, []stat.Stat, error) {
		return nil, nil, errors.New("boom")
	}}

	s := New(http, &fakeUDP{})
	result := s.ScrapeHashes(context.Background(), []HashKey{h1}, []string{"http://t1/announce"})

	require.Contains(t, result, "h1")
	assert.Empty(t, result["h1"])
}

func TestScrapeHashesPerTrackerIsolation(t *testing.T) {
	h1 := hashKey("h1", 1)

	http := &fakeHTTP{scrape: func(ctx context.Context, trackerURL string, hashes [][20]byte) ([][20]byte, []stat.Stat, error) {
		if trackerURL == "http://bad/announce" {
			return nil, nil, errors.New("boom")
		}
		return hashes, []stat.Stat{{Seeders: 9}}, nil
	}}

	s := New(http, &fakeUDP{})
	result := s.ScrapeHashes(context.Background(), []HashKey{h1}, []string{"http://bad/announce", "http://good/announce"})

	require.Len(t, result["h1"], 1)
	assert.Equal(t, "http://good/announce", result["h1"][0].TrackerURL)
	assert.EqualValues(t, 9, result["h1"][0].Stat.Seeders)
}

func TestBatchScrapeHashesOneRequestPerTracker(t *testing.T) {
	h1 := hashKey("h1", 1)
	h2 := hashKey("h2", 2)

	calls := make(map[string]int)
	udp := &fakeUDP{scrape: func(ctx context.Context, trackerURL string, hashes [][20]byte) ([]stat.Stat, error) {
		calls[trackerURL]++
		require.Len(t, hashes, 1)
		return []stat.Stat{{Seeders: 1}}, nil
	}}

	s := New(&fakeHTTP{}, udp)
	items := []Item{
		{Hash: h1, Trackers: []string{"udp://t1/announce"}},
		{Hash: h2, Trackers: []string{"udp://t2/announce"}},
	}
	result := s.BatchScrapeHashes(context.Background(), items)

	assert.Equal(t, 1, calls["udp://t1/announce"])
	assert.Equal(t, 1, calls["udp://t2/announce"])
	require.Len(t, result["h1"], 1)
	require.Len(t, result["h2"], 1)
}

func TestScrapeHashesDuplicateTrackerURLBothContribute(t *testing.T) {
	h1 := hashKey("h1", 1)

	calls := 0
	http := &fakeHTTP{scrape: func(ctx context.Context, trackerURL string, hashes [][20]byte) ([][20]byte, []stat.Stat, error) {
		calls++
		return hashes, []stat.Stat{{Seeders: uint32(calls)}}, nil
	}}

	s := New(http, &fakeUDP{})
	result := s.ScrapeHashes(context.Background(), []HashKey{h1}, []string{"http://t1/announce", "http://t1/announce"})

	require.Len(t, result["h1"], 2)
	assert.Equal(t, "http://t1/announce", result["h1"][0].TrackerURL)
	assert.Equal(t, "http://t1/announce", result["h1"][1].TrackerURL)
	seeders := []uint32{result["h1"][0].Stat.Seeders, result["h1"][1].Stat.Seeders}
	sort.Slice(seeders, func(i, j int) bool { return seeders[i] < seeders[j] })
	assert.Equal(t, []uint32{1, 2}, seeders)
}

func TestScrapeHashesEmptyInput(t *testing.T) {
	s := New(&fakeHTTP{}, &fakeUDP{})
	result := s.ScrapeHashes(context.Background(), nil, []string{"http://t1/announce"})
	assert.Empty(t, result)
}
