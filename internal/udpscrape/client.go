// Package udpscrape implements the client side of the BEP-15 UDP tracker
// scrape protocol: connect/scrape handshake, transaction correlation,
// retransmission with backoff, and batching of up to MaxBatchSize info
// hashes per datagram.
package udpscrape

import (
	"context"
	"math/rand"
	"net"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v3"

	"github.com/cenkalti/scrape/internal/logger"
	"github.com/cenkalti/scrape/internal/resolve"
	"github.com/cenkalti/scrape/internal/stat"
)

// MaxBatchSize is the maximum number of info hashes packed into a single
// scrape request, chosen so that 16 + 20*MaxBatchSize stays under a
// typical 1500-byte MTU.
const MaxBatchSize = 74

// Client implements one-tracker-at-a-time UDP scraping. A Client holds no
// per-tracker state between calls to Scrape: every call opens its own
// socket and connection ID, per the "one socket per scrape call" design
// this protocol adopts for transaction-correlation simplicity.
type Client struct {
	RetryPolicy RetryPolicyFactory
	BatchSize   int
}

// New returns a Client with the library's default retry policy and batch
// size.
func New() *Client {
	return &Client{
		RetryPolicy: DefaultRetryPolicy,
		BatchSize:   MaxBatchSize,
	}
}

// session holds the connection ID acquired from a tracker and when it was
// acquired, so Scrape knows when it must reconnect.
type session struct {
	connectionID uint64
	acquiredAt   time.Time
	valid        bool
}

func (s *session) expired() bool {
	return !s.valid || time.Since(s.acquiredAt) > connectionTTL
}

// Scrape queries one UDP tracker for the given info hashes, batching them
// as needed, and returns one stat.Stat per hash, in the order the hashes
// were given (batches are sent in order and their stats appended in
// order). If any batch fails, Scrape returns no stats at all.
func (c *Client) Scrape(ctx context.Context, trackerURL string, hashes [][20]byte) ([]stat.Stat, error) {
	u, err := url.Parse(trackerURL)
	if err != nil {
		return nil, &urlError{err}
	}
	if u.Scheme != "udp" {
		return nil, &urlError{err: errUnsupportedScheme(u.Scheme)}
	}

	log := logger.New("udpscrape " + u.Host)

	addr, err := resolve.UDPAddr(ctx, u.Host)
	if err != nil {
		return nil, &resolutionError{err}
	}

	conn, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: addr.IP, Port: addr.Port})
	if err != nil {
		return nil, &transportError{err}
	}
	defer conn.Close()

	// Closing the socket unblocks any in-flight Read the instant ctx is
	// cancelled, instead of waiting out the current retransmission window.
	stopWatcher := make(chan struct{})
	defer close(stopWatcher)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stopWatcher:
		}
	}()

	batchSize := c.BatchSize
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}

	var sess session
	var results []stat.Stat
	for start := 0; start < len(hashes); start += batchSize {
		end := start + batchSize
		if end > len(hashes) {
			end = len(hashes)
		}
		batch := hashes[start:end]

		if sess.expired() {
			id, err := c.connect(ctx, conn, log)
			if err != nil {
				return nil, err
			}
			sess.connectionID = id
			sess.acquiredAt = time.Now()
			sess.valid = true
		}

		batchStats, err := c.scrapeBatch(ctx, conn, sess.connectionID, batch, log)
		if err != nil {
			return nil, err
		}
		results = append(results, batchStats...)
	}
	return results, nil
}

func (c *Client) connect(ctx context.Context, conn *net.UDPConn, log logger.Logger) (uint64, error) {
	data, err := c.transact(ctx, conn, log, func(transactionID int32) []byte {
		return buildConnectRequest(transactionID)
	}, 16, actionConnect, 16)
	if err != nil {
		return 0, err
	}
	connID := connectionIDFromResponse(data)
	log.Debugf("connect response: connection_id=%#x", connID)
	return connID, nil
}

func (c *Client) scrapeBatch(ctx context.Context, conn *net.UDPConn, connectionID uint64, batch [][20]byte, log logger.Logger) ([]stat.Stat, error) {
	wantLen := 8 + 12*len(batch)
	data, err := c.transact(ctx, conn, log, func(transactionID int32) []byte {
		return buildScrapeRequest(connectionID, transactionID, batch)
	}, wantLen, actionScrape, wantLen)
	if err != nil {
		return nil, err
	}
	triples := parseScrapeTriples(data, len(batch))
	stats := make([]stat.Stat, len(triples))
	for i, t := range triples {
		stats[i] = stat.Stat{Seeders: t.complete, Peers: t.incomplete, Complete: t.downloaded}
	}
	return stats, nil
}

// transact performs one request/response round trip with retransmission:
// it builds and sends a fresh request (with a fresh transaction ID) on
// every retry attempt, and within each attempt's window it reads
// datagrams until one matches both the transaction ID it just sent and
// the expected action, or the attempt's deadline passes. A mismatched
// action or transaction ID is dropped silently and waited past, per the
// connect-phase handshake rule in the protocol; an action=3 reply carrying
// the transaction ID just sent is a tracker error regardless of which
// phase sent the request; any matching reply shorter than wantLen is a
// protocol error. One request is sent per duration the retry policy
// yields; once the policy stops, transact returns a timeout error.
func (c *Client) transact(ctx context.Context, conn *net.UDPConn, log logger.Logger, build func(transactionID int32) []byte, bufSize int, wantAction action, wantLen int) ([]byte, error) {
	policy := c.retryPolicy()
	buf := make([]byte, bufSize+64)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			return nil, &timeoutError{}
		}

		transactionID := rand.Int31() //nolint:gosec
		req := build(transactionID)
		if _, err := conn.Write(req); err != nil {
			return nil, &transportError{err}
		}
		deadline := time.Now().Add(wait)

		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := conn.SetReadDeadline(deadline); err != nil {
				return nil, &transportError{err}
			}
			n, err := conn.Read(buf)
			if err != nil {
				if cerr := ctx.Err(); cerr != nil {
					return nil, cerr
				}
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					break // retransmit with a fresh transaction ID
				}
				return nil, &transportError{err}
			}
			data := buf[:n]

			gotAction, gotTransactionID, ok := readHeader(data)
			if !ok {
				continue // too short to even have a header; ignore
			}
			if gotTransactionID != transactionID {
				log.Debugln("unexpected transaction_id:", gotTransactionID)
				continue
			}
			if gotAction == actionError {
				return nil, &trackerError{message: string(data[8:])}
			}
			if gotAction != wantAction {
				log.Debugln("unexpected action:", gotAction)
				continue
			}
			if len(data) < wantLen {
				return nil, &protocolError{reason: "response shorter than expected"}
			}
			return data, nil
		}
	}
}

func (c *Client) retryPolicy() backoff.BackOff {
	if c.RetryPolicy != nil {
		return c.RetryPolicy()
	}
	return DefaultRetryPolicy()
}

type errUnsupportedScheme string

func (e errUnsupportedScheme) Error() string { return "unsupported scheme: " + string(e) }
