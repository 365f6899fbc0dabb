// Package httpscrape implements the client side of the HTTP tracker scrape
// convention: building a /scrape request from a tracker's announce URL,
// encoding info hashes as repeated info_hash query parameters, and decoding
// the bencoded "files" dictionary the tracker replies with.
package httpscrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/scrape/internal/bencode"
	"github.com/cenkalti/scrape/internal/logger"
	"github.com/cenkalti/scrape/internal/stat"
)

// DefaultTimeout bounds the whole request/response round trip when the
// caller does not configure one explicitly.
const DefaultTimeout = 10 * time.Second

// Client performs HTTP scrape requests against a single tracker per call.
// Like udpscrape.Client, it is stateless between calls: every Scrape builds
// its own *http.Client so per-call timeouts never leak into other calls.
type Client struct {
	Timeout time.Duration
}

// New returns a Client using DefaultTimeout.
func New() *Client {
	return &Client{Timeout: DefaultTimeout}
}

// Scrape queries one HTTP tracker for the given info hashes and returns one
// stat.Stat per hash the tracker included in its response, in hashes order.
// A hash the tracker omits from its reply is simply absent from the
// returned slice's corresponding position being skipped; callers that need
// positional pairing should look the hash back up by indexing into the
// hashes slice the tracker actually answered, which is why Scrape also
// returns the subset of hashes it found stats for.
func (c *Client) Scrape(ctx context.Context, trackerURL string, hashes [][20]byte) ([][20]byte, []stat.Stat, error) {
	u, err := url.Parse(trackerURL)
	if err != nil {
		return nil, nil, &urlError{err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, nil, &urlError{err: errUnsupportedScheme(u.Scheme)}
	}

	scrapeURL := rewriteToScrape(*u)
	scrapeURL.RawQuery = appendInfoHashParams(scrapeURL.Query().Encode(), hashes)

	log := logger.New("httpscrape " + u.Host)
	log.Debugf("making request to: %q", scrapeURL.String())

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{
		Dial: (&net.Dialer{
			Timeout: timeout,
		}).Dial,
		TLSHandshakeTimeout: timeout,
		DisableKeepAlives:   true,
	}
	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scrapeURL.String(), nil)
	if err != nil {
		return nil, nil, &urlError{err}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, &transportError{err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &trackerError{status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &transportError{err}
	}

	val, err := bencode.Decode(body)
	if err != nil {
		return nil, nil, &protocolError{reason: err.Error()}
	}

	root, ok := val.Dict()
	if !ok {
		return nil, nil, &protocolError{reason: "scrape response is not a dictionary"}
	}
	if failure, ok := root["failure reason"]; ok {
		if msg, ok := failure.Bytes(); ok {
			return nil, nil, &trackerError{status: resp.StatusCode, message: string(msg)}
		}
	}
	filesVal, ok := root["files"]
	if !ok {
		return nil, nil, &protocolError{reason: "scrape response missing \"files\""}
	}
	files, ok := filesVal.Dict()
	if !ok {
		return nil, nil, &protocolError{reason: "\"files\" is not a dictionary"}
	}

	var found [][20]byte
	var stats []stat.Stat
	for _, h := range hashes {
		entry, ok := files[string(h[:])]
		if !ok {
			continue
		}
		fields, ok := entry.Dict()
		if !ok {
			return nil, nil, &protocolError{reason: "files entry is not a dictionary"}
		}
		s, err := statFromFields(fields)
		if err != nil {
			return nil, nil, err
		}
		found = append(found, h)
		stats = append(stats, s)
	}

	return found, stats, nil
}

func statFromFields(fields map[string]bencode.Value) (stat.Stat, error) {
	complete, ok := intField(fields, "complete")
	if !ok {
		return stat.Stat{}, &protocolError{reason: "files entry missing \"complete\""}
	}
	incomplete, ok := intField(fields, "incomplete")
	if !ok {
		return stat.Stat{}, &protocolError{reason: "files entry missing \"incomplete\""}
	}
	downloaded, _ := intField(fields, "downloaded")
	return stat.Stat{
		Seeders:  uint32(complete),
		Peers:    uint32(incomplete),
		Complete: uint32(downloaded),
	}, nil
}

func intField(fields map[string]bencode.Value, key string) (int64, bool) {
	v, ok := fields[key]
	if !ok {
		return 0, false
	}
	return v.Int()
}

// rewriteToScrape applies the standard announce-to-scrape URL rule: replace
// the final "/announce" path segment with "/scrape", or leave the path
// untouched if the tracker's URL does not end in "/announce" (the query
// parameters are still appended either way).
func rewriteToScrape(u url.URL) url.URL {
	if idx := strings.LastIndex(u.Path, "/announce"); idx >= 0 && idx == len(u.Path)-len("/announce") {
		u.Path = u.Path[:idx] + "/scrape"
	}
	return u
}

// appendInfoHashParams appends one percent-encoded info_hash parameter per
// hash to an already-encoded query string, preserving whatever the tracker
// URL's own query carried. info_hash values are encoded by hand, byte by
// byte, rather than through url.Values.Encode: that encoder escapes a
// literal space (0x20) as "+" instead of "%20", which would corrupt a raw
// 20-byte hash that happens to contain that byte.
func appendInfoHashParams(existingQuery string, hashes [][20]byte) string {
	parts := make([]string, 0, len(hashes)+1)
	if existingQuery != "" {
		parts = append(parts, existingQuery)
	}
	for _, h := range hashes {
		parts = append(parts, "info_hash="+percentEncodeBytes(h[:]))
	}
	return strings.Join(parts, "&")
}

// percentEncodeBytes percent-encodes every byte of b that is not in
// RFC 3986's unreserved set (ALPHA / DIGIT / "-" / "." / "_" / "~"),
// as "%XX" with uppercase hex digits.
func percentEncodeBytes(b []byte) string {
	const upperhex = "0123456789ABCDEF"
	var buf strings.Builder
	for _, c := range b {
		if isUnreserved(c) {
			buf.WriteByte(c)
			continue
		}
		buf.WriteByte('%')
		buf.WriteByte(upperhex[c>>4])
		buf.WriteByte(upperhex[c&0x0f])
	}
	return buf.String()
}

func isUnreserved(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	default:
		return false
	}
}

type errUnsupportedScheme string

func (e errUnsupportedScheme) Error() string { return "unsupported scheme: " + string(e) }
