package protocol

import "strings"

const (
	// MaxEventHandlers is the capacity of the event handler table.
	MaxEventHandlers = 6
	// MaxFilterLength limits event handler filters.
	MaxFilterLength = 63
	// MatchAll selects every handler in RemoveEventHandlers.
	MatchAll = ""
)

// SubscriptionScope selects whose events a subscription receives.
type SubscriptionScope int

// Subscription scopes.
const (
	ScopeFirehose SubscriptionScope = iota
	ScopeMyDevices
)

// EventHandlerFunc handles a received event.
type EventHandlerFunc func(name string, data []byte)

// EventHandler is one entry of the handler table.
type EventHandler struct {
	Filter  string
	Handler EventHandlerFunc
	Scope   SubscriptionScope
}

// matchesFilter is the event matching policy: a filter matches every
// event name it is a prefix of.
func matchesFilter(filter, name string) bool {
	return strings.HasPrefix(name, filter)
}

// handlerTable is a fixed-capacity table of event handlers.
type handlerTable struct {
	slots [MaxEventHandlers]EventHandler
	used  [MaxEventHandlers]bool
}

func (t *handlerTable) add(h EventHandler) bool {
	if h.Filter == "" || len(h.Filter) > MaxFilterLength || h.Handler == nil {
		return false
	}
	for i := range t.slots {
		if !t.used[i] {
			t.slots[i], t.used[i] = h, true
			return true
		}
	}
	return false
}

func (t *handlerTable) remove(filter string) int {
	var n int
	for i := range t.slots {
		if t.used[i] && (filter == MatchAll || t.slots[i].Filter == filter) {
			t.slots[i], t.used[i] = EventHandler{}, false
			n++
		}
	}
	return n
}

func (t *handlerTable) handlers() []EventHandler {
	var hs []EventHandler
	for i := range t.slots {
		if t.used[i] {
			hs = append(hs, t.slots[i])
		}
	}
	return hs
}

// dispatch calls every matching handler in slot order and returns the
// number called.
func (t *handlerTable) dispatch(name string, data []byte) int {
	var n int
	for _, h := range t.handlers() {
		if matchesFilter(h.Filter, name) {
			h.Handler(name, data)
			n++
		}
	}
	return n
}
