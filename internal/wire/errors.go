package wire

import "errors"

// ErrPadding is returned when a frame's pad-length octet is greater than or
// equal to the remaining payload, per RFC 7540 §6.1.
var ErrPadding = errors.New("wire: padding length exceeds payload")
