package protocol

import "errors"

var (
	// ErrNotConnected indicates an operation requiring a session.
	ErrNotConnected = errors.New("protocol: not connected")
	// ErrRetransmitExhausted indicates a confirmable message was never
	// acknowledged.
	ErrRetransmitExhausted = errors.New("protocol: retransmissions exhausted")
	// ErrRateLimited indicates an event was published too often.
	ErrRateLimited = errors.New("protocol: event rate limited")
	// ErrRejected indicates the peer reset a confirmable message.
	ErrRejected = errors.New("protocol: message rejected")
	// ErrTimeout indicates the peer didn't respond in time.
	ErrTimeout = errors.New("protocol: timeout")
	// ErrCancelled indicates a pending completion was cleared.
	ErrCancelled = errors.New("protocol: cancelled")
	// ErrUnknownCommand indicates an unsupported Command.
	ErrUnknownCommand = errors.New("protocol: unknown command")
	// ErrInvalidArgument indicates bad input to an application call.
	ErrInvalidArgument = errors.New("protocol: invalid argument")
	// ErrUnknownFunction is returned by FunctionInvokers for names they
	// don't provide.
	ErrUnknownFunction = errors.New("protocol: unknown function")
	// ErrUnknownVariable is returned by VariableReaders for names they
	// don't provide.
	ErrUnknownVariable = errors.New("protocol: unknown variable")
)

// SendError indicates the channel failed to send a message, which
// ends the session.
type SendError struct {
	Err error
}

// Error implements error.
func (e *SendError) Error() string {
	return "send: " + e.Err.Error()
}

// Unwrap returns the channel error.
func (e *SendError) Unwrap() error {
	return e.Err
}
