package httpscrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bencodeFilesResponse(entries map[[20]byte][3]int) []byte {
	body := "d5:filesd"
	for hash, triple := range entries {
		body += fmt.Sprintf("20:%s", string(hash[:]))
		body += fmt.Sprintf("d8:completei%de10:downloadedi%de10:incompletei%dee", triple[0], triple[2], triple[1])
	}
	body += "ee"
	return []byte(body)
}

func TestScrapeHappyPath(t *testing.T) {
	var hash [20]byte
	hash[0] = 9

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scrape", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(bencodeFilesResponse(map[[20]byte][3]int{hash: {1022, 2, 14920}}))
	}))
	defer srv.Close()

	c := New()
	found, stats, err := c.Scrape(context.Background(), srv.URL+"/announce", [][20]byte{hash})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Len(t, stats, 1)
	assert.EqualValues(t, 1022, stats[0].Seeders)
	assert.EqualValues(t, 2, stats[0].Peers)
	assert.EqualValues(t, 14920, stats[0].Complete)
}

func TestScrapeNonAnnounceURLKeepsPath(t *testing.T) {
	var hash [20]byte
	hash[0] = 3

	var requestedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(bencodeFilesResponse(map[[20]byte][3]int{hash: {1, 1, 1}}))
	}))
	defer srv.Close()

	c := New()
	_, _, err := c.Scrape(context.Background(), srv.URL+"/scrape.php", [][20]byte{hash})
	require.NoError(t, err)
	assert.Equal(t, "/scrape.php", requestedPath)
}

func TestScrapeNon2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New()
	var hash [20]byte
	_, _, err := c.Scrape(context.Background(), srv.URL+"/announce", [][20]byte{hash})
	require.Error(t, err)
	var te *trackerError
	assert.ErrorAs(t, err, &te)
}

func TestScrapeFailureReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("d14:failure reason17:torrent not founde"))
	}))
	defer srv.Close()

	c := New()
	var hash [20]byte
	_, _, err := c.Scrape(context.Background(), srv.URL+"/announce", [][20]byte{hash})
	require.Error(t, err)
	var te *trackerError
	assert.ErrorAs(t, err, &te)
}

func TestScrapeMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("not bencode"))
	}))
	defer srv.Close()

	c := New()
	var hash [20]byte
	_, _, err := c.Scrape(context.Background(), srv.URL+"/announce", [][20]byte{hash})
	require.Error(t, err)
	var pe *protocolError
	assert.ErrorAs(t, err, &pe)
}

func TestScrapeHashNotInResponseIsOmitted(t *testing.T) {
	var present, missing [20]byte
	present[0] = 1
	missing[0] = 2

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(bencodeFilesResponse(map[[20]byte][3]int{present: {5, 1, 2}}))
	}))
	defer srv.Close()

	c := New()
	found, stats, err := c.Scrape(context.Background(), srv.URL+"/announce", [][20]byte{present, missing})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Len(t, stats, 1)
	assert.Equal(t, present, found[0])
}

func TestScrapeUnsupportedScheme(t *testing.T) {
	c := New()
	_, _, err := c.Scrape(context.Background(), "udp://example.com:80/announce", [][20]byte{{}})
	require.Error(t, err)
	var ue *urlError
	assert.ErrorAs(t, err, &ue)
}
