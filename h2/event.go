package h2

// EventType tags the kind of Event a Conn emits from Ingest: each call
// returns the complete batch of events a chunk of input produced, rather
// than dispatching them through a callback or channel as they're parsed.
type EventType uint8

const (
	// EventHeaders carries a fully assembled, HPACK-decoded request header
	// list for StreamID. Body, if any, follows as EventData events.
	EventHeaders EventType = iota
	// EventData carries a chunk of request body for StreamID.
	EventData
	// EventTrailers carries a fully assembled trailer header list: any
	// header block after the first on a stream, whether or not EventData
	// came in between. It always has EndStream set.
	EventTrailers
	// EventStreamClosed reports that StreamID will not produce any more
	// events (peer reset it, we reset it, or it closed cleanly).
	EventStreamClosed
	// EventPing reports a PING ACK received from the peer, with its opaque
	// data in Data, so callers can log RTT probes if they want to. An
	// unsolicited PING is ACKed by the connection and produces no event.
	EventPing
	// EventGoAway reports that the peer sent GOAWAY; Err carries the code.
	EventGoAway
	// EventWindowUpdate reports send-window headroom becoming available for
	// StreamID (0 means the connection-level window), so a handler waiting
	// to stream a large response body knows when it may resume.
	EventWindowUpdate
)

// Event is the tagged union returned by (*Conn).Ingest.
type Event struct {
	Type      EventType
	StreamID  uint32
	Headers   []HeaderField
	Data      []byte
	EndStream bool
	Err       error
}
