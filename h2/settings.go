package h2

// Settings is the effective SETTINGS table for one side of a connection
// (RFC 7540 §6.5.2). Conn keeps two: local (what we advertised) and remote
// (what the peer last sent, applied on receipt). Unknown identifiers received on the wire are
// ignored per RFC 7540 §6.5.2 ("An endpoint that receives a SETTINGS frame
// with any unknown or unsupported identifier MUST ignore that setting");
// they never reach this struct.
type Settings struct {
	HeaderTableSize      uint32
	EnablePush           bool
	MaxConcurrentStreams uint32
	InitialWindowSize    uint32
	MaxFrameSize         uint32
	MaxHeaderListSize    uint32
}

// DefaultSettings returns the RFC 7540 §11.3 default values.
func DefaultSettings() Settings {
	return Settings{
		HeaderTableSize:      4096,
		EnablePush:           true,
		MaxConcurrentStreams: ^uint32(0), // unbounded until the peer says otherwise
		InitialWindowSize:    65535,
		MaxFrameSize:         DefaultMaxFrameSize,
		MaxHeaderListSize:    ^uint32(0),
	}
}

// Apply merges the parameters of a non-ACK SETTINGS frame into s, returning
// an error if any value is out of its legal range (RFC 7540 §6.5.2).
func (s *Settings) Apply(params []SettingPair) error {
	for _, p := range params {
		switch p.ID {
		case SettingHeaderTableSize:
			s.HeaderTableSize = p.Value
		case SettingEnablePush:
			if p.Value > 1 {
				return connError(ProtocolError, "SETTINGS_ENABLE_PUSH must be 0 or 1")
			}
			s.EnablePush = p.Value == 1
		case SettingMaxConcurrentStreams:
			s.MaxConcurrentStreams = p.Value
		case SettingInitialWindowSize:
			if p.Value > 1<<31-1 {
				return connError(FlowControlError, "SETTINGS_INITIAL_WINDOW_SIZE exceeds maximum")
			}
			s.InitialWindowSize = p.Value
		case SettingMaxFrameSize:
			if p.Value < DefaultMaxFrameSize || p.Value > 1<<24-1 {
				return connError(ProtocolError, "SETTINGS_MAX_FRAME_SIZE out of range")
			}
			s.MaxFrameSize = p.Value
		case SettingMaxHeaderListSize:
			s.MaxHeaderListSize = p.Value
		default:
			// unknown identifier: ignore (RFC 7540 §6.5.2)
		}
	}

	return nil
}
