package protocol

import "time"

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

// TimeSourceFunc is the func form of TimeSource.
type TimeSourceFunc func() time.Time

// Now implements TimeSource.
func (f TimeSourceFunc) Now() time.Time {
	return f()
}

// FunctionInvoker calls application functions.
type FunctionInvoker interface {
	CallFunction(name, arg string) (int32, error)
}

// VariableReader reads application variables.
type VariableReader interface {
	ReadVariable(name string) (interface{}, error)
}

// EventNotifier is notified of every received event, after the
// matching handlers ran.
type EventNotifier interface {
	EventReceived(name string, data []byte)
}

// Signaler is asked to start or stop signaling, e.g. blinking a LED.
type Signaler interface {
	Signal(on bool)
}

// SignalerFunc is the func form of Signaler.
type SignalerFunc func(on bool)

// Signal implements Signaler.
func (f SignalerFunc) Signal(on bool) {
	f(on)
}

// TimeSetter receives the time sent by the cloud.
type TimeSetter interface {
	SetTime(t time.Time)
}

// TimeSetterFunc is the func form of TimeSetter.
type TimeSetterFunc func(t time.Time)

// SetTime implements TimeSetter.
func (f TimeSetterFunc) SetTime(t time.Time) {
	f(t)
}

// KeyChanger is notified when the cloud requests a key change.
type KeyChanger interface {
	KeyChanged(param byte)
}

// Callbacks are the application hooks a Protocol calls. Any of them
// may be nil.
type Callbacks struct {
	Time       TimeSource
	Functions  FunctionInvoker
	Variables  VariableReader
	Events     EventNotifier
	Signaler   Signaler
	TimeSetter TimeSetter
	KeyChanger KeyChanger
}

// VariableType is the declared type of a variable.
type VariableType byte

// Variable types.
const (
	VarBool   VariableType = 1
	VarInt    VariableType = 2
	VarString VariableType = 4
	VarDouble VariableType = 9
)

// Descriptor enumerates what the application exposes.
type Descriptor interface {
	Functions() []string
	Variables() map[string]VariableType
	// SystemInfo is merged into the system part of describe.
	SystemInfo() map[string]interface{}
}

// MetricsDescriptor is optionally implemented by a Descriptor to
// answer metrics describe requests.
type MetricsDescriptor interface {
	Metrics() map[string]interface{}
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }
