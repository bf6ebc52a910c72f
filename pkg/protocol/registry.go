package protocol

import (
	"fmt"
	"sort"
	"sync"
)

const (
	// MaxFunctionKeyLength limits function and variable names.
	MaxFunctionKeyLength = 64
	// MaxFunctionArgLength limits function call arguments.
	MaxFunctionArgLength = 622
)

// Function is an application function callable from the cloud.
type Function func(arg string) int32

// VariableFunc reads a variable value.
type VariableFunc func() interface{}

type variable struct {
	typ VariableType
	get VariableFunc
}

// Registry holds application functions and variables. It implements
// FunctionInvoker, VariableReader, Descriptor and MetricsDescriptor.
type Registry struct {
	functions map[string]Function
	variables map[string]variable
	info      map[string]interface{}
	metrics   func() map[string]interface{}
	lock      sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		functions: make(map[string]Function),
		variables: make(map[string]variable),
		info:      make(map[string]interface{}),
	}
}

func checkKey(name string) error {
	if name == "" || len(name) > MaxFunctionKeyLength {
		return fmt.Errorf("%w: name %q", ErrInvalidArgument, name)
	}
	return nil
}

// Function registers fn as name.
func (r *Registry) Function(name string, fn Function) error {
	if err := checkKey(name); err != nil {
		return err
	}
	r.lock.Lock()
	r.functions[name] = fn
	r.lock.Unlock()
	return nil
}

// Variable registers a variable read by get.
func (r *Registry) Variable(name string, typ VariableType, get VariableFunc) error {
	if err := checkKey(name); err != nil {
		return err
	}
	switch typ {
	case VarBool, VarInt, VarString, VarDouble:
	default:
		return fmt.Errorf("%w: variable type %d", ErrInvalidArgument, typ)
	}
	r.lock.Lock()
	r.variables[name] = variable{typ: typ, get: get}
	r.lock.Unlock()
	return nil
}

// SetSystemInfo sets a system describe entry.
func (r *Registry) SetSystemInfo(key string, value interface{}) {
	r.lock.Lock()
	r.info[key] = value
	r.lock.Unlock()
}

// SetMetrics installs the metrics source.
func (r *Registry) SetMetrics(fn func() map[string]interface{}) {
	r.lock.Lock()
	r.metrics = fn
	r.lock.Unlock()
}

// CallFunction implements FunctionInvoker.
func (r *Registry) CallFunction(name, arg string) (int32, error) {
	r.lock.RLock()
	fn := r.functions[name]
	r.lock.RUnlock()
	if fn == nil {
		return 0, ErrUnknownFunction
	}
	return fn(arg), nil
}

// ReadVariable implements VariableReader.
func (r *Registry) ReadVariable(name string) (interface{}, error) {
	r.lock.RLock()
	v, ok := r.variables[name]
	r.lock.RUnlock()
	if !ok {
		return nil, ErrUnknownVariable
	}
	return v.get(), nil
}

// Functions implements Descriptor.
func (r *Registry) Functions() []string {
	r.lock.RLock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	r.lock.RUnlock()
	sort.Strings(names)
	return names
}

// Variables implements Descriptor.
func (r *Registry) Variables() map[string]VariableType {
	r.lock.RLock()
	defer r.lock.RUnlock()
	vars := make(map[string]VariableType, len(r.variables))
	for name, v := range r.variables {
		vars[name] = v.typ
	}
	return vars
}

// SystemInfo implements Descriptor.
func (r *Registry) SystemInfo() map[string]interface{} {
	r.lock.RLock()
	defer r.lock.RUnlock()
	info := make(map[string]interface{}, len(r.info))
	for k, v := range r.info {
		info[k] = v
	}
	return info
}

// Metrics implements MetricsDescriptor.
func (r *Registry) Metrics() map[string]interface{} {
	r.lock.RLock()
	fn := r.metrics
	r.lock.RUnlock()
	if fn == nil {
		return nil
	}
	return fn()
}
