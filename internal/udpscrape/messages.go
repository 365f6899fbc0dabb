package udpscrape

import "encoding/binary"

// buildConnectRequest encodes the 16-byte BEP-15 connect request.
func buildConnectRequest(transactionID int32) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], connectionIDMagic)
	binary.BigEndian.PutUint32(buf[8:12], uint32(actionConnect))
	binary.BigEndian.PutUint32(buf[12:16], uint32(transactionID))
	return buf
}

// buildScrapeRequest encodes a scrape request for up to MaxBatchSize
// hashes: connection_id (8) | action (4) | transaction_id (4) | hashes.
func buildScrapeRequest(connectionID uint64, transactionID int32, hashes [][20]byte) []byte {
	buf := make([]byte, 16+20*len(hashes))
	binary.BigEndian.PutUint64(buf[0:8], connectionID)
	binary.BigEndian.PutUint32(buf[8:12], uint32(actionScrape))
	binary.BigEndian.PutUint32(buf[12:16], uint32(transactionID))
	for i, h := range hashes {
		copy(buf[16+20*i:16+20*(i+1)], h[:])
	}
	return buf
}

// readHeader reads the common action+transaction_id header shared by
// every UDP tracker reply. Returns false if data is too short to hold it.
func readHeader(data []byte) (a action, transactionID int32, ok bool) {
	if len(data) < 8 {
		return 0, 0, false
	}
	a = action(binary.BigEndian.Uint32(data[0:4]))
	transactionID = int32(binary.BigEndian.Uint32(data[4:8]))
	return a, transactionID, true
}

// connectionIDFromResponse extracts the connection_id from a 16-byte
// connect response (action and transaction_id already validated).
func connectionIDFromResponse(data []byte) uint64 {
	return binary.BigEndian.Uint64(data[8:16])
}

// scrapeTriple is one (complete, downloaded, incomplete) triple from a
// scrape response, in the order they are encoded on the wire.
type scrapeTriple struct {
	complete   uint32
	downloaded uint32
	incomplete uint32
}

// parseScrapeTriples parses batchSize consecutive 12-byte triples that
// follow the 8-byte header of a scrape response.
func parseScrapeTriples(data []byte, batchSize int) []scrapeTriple {
	triples := make([]scrapeTriple, batchSize)
	for i := 0; i < batchSize; i++ {
		off := 8 + 12*i
		triples[i] = scrapeTriple{
			complete:   binary.BigEndian.Uint32(data[off : off+4]),
			downloaded: binary.BigEndian.Uint32(data[off+4 : off+8]),
			incomplete: binary.BigEndian.Uint32(data[off+8 : off+12]),
		}
	}
	return triples
}
