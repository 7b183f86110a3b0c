package signaling

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyRoomID    = errors.New("room id is empty")
	ErrMissingType    = errors.New("frame has no type")
	ErrMissingPayload = errors.New("frame has no payload")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrHubClosed      = errors.New("hub is not running")
)

// RelayError describes a frame a connection sent that could not be relayed.
// It is logged on the server; clients are never told.
type RelayError struct {
	Event string
	Conn  string
	Err   error
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("%s from %s: %v", e.Event, e.Conn, e.Err)
}

func (e *RelayError) Unwrap() error {
	return e.Err
}
