package h2

// Continuation is the CONTINUATION frame payload (RFC 7540 §6.10). It only
// ever carries a header-block fragment that belongs to the most recently
// opened HEADERS or PUSH_PROMISE block on the connection; headerblock.go
// assembles the fragments.
type Continuation struct {
	HeaderBlock []byte
}

func (*Continuation) Type() FrameType { return FrameContinuation }

func decodeContinuation(h Header, payload []byte) (Frame, error) {
	if h.Stream == 0 {
		return nil, connError(ProtocolError, "CONTINUATION on stream 0")
	}

	return &Continuation{HeaderBlock: append([]byte(nil), payload...)}, nil
}

func (c *Continuation) append(dst []byte) []byte {
	return append(dst, c.HeaderBlock...)
}
