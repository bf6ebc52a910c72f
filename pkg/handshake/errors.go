package handshake

import (
	"errors"
	"fmt"
)

var (
	// ErrBadLength indicates a handshake packet of unexpected size.
	ErrBadLength = errors.New("bad length")
	// ErrNonceMismatch indicates the hello doesn't carry the sent nonce.
	ErrNonceMismatch = errors.New("nonce mismatch")
	// ErrBadSignature indicates the service signature doesn't verify.
	ErrBadSignature = errors.New("bad signature")
	// ErrUnknownDevice indicates the service doesn't accept the device.
	ErrUnknownDevice = errors.New("unknown device")
)

// Step identifies a handshake step.
type Step int

// Handshake steps in order.
const (
	StepNonce Step = iota
	StepHello
	StepCredentials
	StepSignature
	StepKeys
)

var stepNames = []string{"nonce", "hello", "credentials", "signature", "keys"}

func (s Step) String() string {
	if int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// Error is a failed handshake. The session attempt must restart
// from the beginning.
type Error struct {
	Step Step
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("handshake %s: %v", e.Step, e.Err)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func stepErr(step Step, err error) error {
	return &Error{Step: step, Err: err}
}
