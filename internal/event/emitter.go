// Package event provides a minimal synchronous publish/subscribe emitter.
//
// Listeners run on the caller's goroutine in attach order. An Emitter is not
// safe for concurrent use.
package event

// Result tells the emitter what to do after a listener returns.
type Result int

const (
	// Continue delivers the event to the next listener
	Continue Result = iota
	// Stop halts delivery for the current Fire call
	Stop
	// Abort halts delivery and asks the publisher to cancel the work in progress
	Abort
)

// String implements fmt.Stringer
func (r Result) String() string {
	switch r {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Listener receives an event argument and decides whether delivery continues.
type Listener[T any] func(arg T) Result

// Handle identifies one registration. Attaching the same listener twice yields two handles.
type Handle uint64

type entry[T any] struct {
	handle Handle
	name   string
	fn     Listener[T]
}

// Emitter maps event names to ordered listener lists.
type Emitter[T any] struct {
	listeners map[string][]entry[T]
	order     []string
	next      Handle
}

// New creates an empty Emitter
func New[T any]() *Emitter[T] {
	return &Emitter[T]{listeners: make(map[string][]entry[T])}
}

// Attach registers fn for event and returns its handle
func (e *Emitter[T]) Attach(event string, fn Listener[T]) Handle {
	return e.attach(event, "", fn)
}

// AttachNamed registers fn under name. A listener already registered with the same
// name for event is replaced in place and keeps its handle. An empty name
// behaves like Attach.
func (e *Emitter[T]) AttachNamed(event, name string, fn Listener[T]) Handle {
	if name == "" {
		return e.attach(event, "", fn)
	}
	for i, en := range e.listeners[event] {
		if en.name == name {
			e.listeners[event][i].fn = fn
			return en.handle
		}
	}
	return e.attach(event, name, fn)
}

func (e *Emitter[T]) attach(event, name string, fn Listener[T]) Handle {
	if e.listeners == nil {
		e.listeners = make(map[string][]entry[T])
	}
	if _, ok := e.listeners[event]; !ok {
		e.order = append(e.order, event)
	}
	e.next++
	e.listeners[event] = append(e.listeners[event], entry[T]{handle: e.next, name: name, fn: fn})
	return e.next
}

// Detach removes the registration identified by h. It returns false when h is
// not registered for event, so detaching twice is harmless.
func (e *Emitter[T]) Detach(event string, h Handle) bool {
	return e.remove(event, func(en entry[T]) bool { return en.handle == h })
}

// DetachNamed removes the listener registered under name
func (e *Emitter[T]) DetachNamed(event, name string) bool {
	if name == "" {
		return false
	}
	return e.remove(event, func(en entry[T]) bool { return en.name == name })
}

func (e *Emitter[T]) remove(event string, match func(entry[T]) bool) bool {
	entries := e.listeners[event]
	for i, en := range entries {
		if !match(en) {
			continue
		}
		kept := make([]entry[T], 0, len(entries)-1)
		kept = append(kept, entries[:i]...)
		kept = append(kept, entries[i+1:]...)
		if len(kept) == 0 {
			e.drop(event)
		} else {
			e.listeners[event] = kept
		}
		return true
	}
	return false
}

// Clear removes every listener of event and reports whether any existed
func (e *Emitter[T]) Clear(event string) bool {
	if len(e.listeners[event]) == 0 {
		return false
	}
	e.drop(event)
	return true
}

func (e *Emitter[T]) drop(event string) {
	delete(e.listeners, event)
	for i, name := range e.order {
		if name == event {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of listeners registered for event
func (e *Emitter[T]) Len(event string) int {
	return len(e.listeners[event])
}

// Fire delivers arg to the listeners of event in attach order. It returns the
// first non-Continue result, which ended delivery, or Continue. Firing an event
// without listeners is a no-op.
func (e *Emitter[T]) Fire(event string, arg T) Result {
	// Copy so listeners may attach or detach while being notified
	entries := append([]entry[T](nil), e.listeners[event]...)
	for _, en := range entries {
		if res := en.fn(arg); res != Continue {
			return res
		}
	}
	return Continue
}

// FireAll fires every event that has listeners, in first-registration order.
// Results short-circuit within an event only.
func (e *Emitter[T]) FireAll(arg T) {
	for _, event := range append([]string(nil), e.order...) {
		e.Fire(event, arg)
	}
}
