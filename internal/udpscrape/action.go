package udpscrape

import "time"

// action identifies the kind of a BEP-15 UDP tracker message.
type action uint32

// UDP tracker actions used by scrape. (Announce is not implemented; this
// client only ever connects and scrapes.)
const (
	actionConnect action = 0
	actionScrape  action = 2
	actionError   action = 3
)

const connectionIDMagic uint64 = 0x41727101980

// connectionTTL is the server-side lifetime of a connection ID, per BEP 15.
const connectionTTL = time.Minute
