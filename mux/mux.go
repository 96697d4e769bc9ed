// Package mux implements the service/method registry: a two-level mapping
// from (service_id, method_id) to a Handler, plus an ordered fallback
// chain, matching spec.md §4.7.
package mux

import (
	"fmt"
	"sync"

	"srpc/packet"
	"srpc/rpc"
)

// Handler is a user-supplied implementation of a service's methods. It
// conforms to the Invoker capability (embedded) and advertises its routing
// identity so Mux.Register can index it.
type Handler interface {
	rpc.Invoker
	ServiceID() string
	MethodIDs() []string
}

// entry wraps the handler registered for one (service_id, method_id) slot.
type entry struct {
	handler Handler
}

// Mux aggregates handlers behind the rpc.Invoker capability, matching the
// teacher's server/service.go serviceMap shape (service name -> method
// table), generalized from a reflected method table to explicit
// registration (see DESIGN.md Open Question #3).
type Mux struct {
	mu        sync.RWMutex
	services  map[string]map[string]entry
	fallbacks []rpc.Invoker
}

// NewMux constructs an empty Mux.
func NewMux() *Mux {
	return &Mux{services: make(map[string]map[string]entry)}
}

// Register indexes handler under its ServiceID for each of its MethodIDs.
// It rejects an empty service id.
func (m *Mux) Register(handler Handler) error {
	svc := handler.ServiceID()
	if svc == "" {
		return packet.EmptyServiceID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	methods, ok := m.services[svc]
	if !ok {
		methods = make(map[string]entry)
		m.services[svc] = methods
	}
	for _, mid := range handler.MethodIDs() {
		methods[mid] = entry{handler: handler}
	}
	return nil
}

// RegisterFallback appends inv to the fallback chain, tried in registration
// order when the primary map misses.
func (m *Mux) RegisterFallback(inv rpc.Invoker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks = append(m.fallbacks, inv)
}

// InvokeMethod implements rpc.Invoker. If serviceID is empty, it searches
// all services for a matching method id; the iteration order is
// implementation-defined and callers should not rely on a specific
// tie-break, per spec.md §4.7.
func (m *Mux) InvokeMethod(serviceID, methodID string, strm rpc.Stream) (bool, error) {
	h, ok := m.lookup(serviceID, methodID)
	if ok {
		return h.InvokeMethod(serviceID, methodID, strm)
	}

	m.mu.RLock()
	fallbacks := append([]rpc.Invoker(nil), m.fallbacks...)
	m.mu.RUnlock()
	for _, fb := range fallbacks {
		found, err := fb.InvokeMethod(serviceID, methodID, strm)
		if found || err != nil {
			return found, err
		}
	}
	return false, nil
}

// lookup finds a handler for (serviceID, methodID) in the primary map only.
func (m *Mux) lookup(serviceID, methodID string) (Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if serviceID == "" {
		for _, methods := range m.services {
			if e, ok := methods[methodID]; ok {
				return e.handler, true
			}
		}
		return nil, false
	}
	methods, ok := m.services[serviceID]
	if !ok {
		return nil, false
	}
	e, ok := methods[methodID]
	if !ok {
		return nil, false
	}
	return e.handler, true
}

// HasService reports whether any handler is registered under serviceID.
func (m *Mux) HasService(serviceID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.services[serviceID]
	return ok
}

// HasServiceMethod reports whether (serviceID, methodID) is registered.
func (m *Mux) HasServiceMethod(serviceID, methodID string) bool {
	_, ok := m.lookup(serviceID, methodID)
	return ok
}

// String implements fmt.Stringer for debugging (mirrors the teacher's
// preference for a quick human-readable dump over a full-fledged debug API).
func (m *Mux) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fmt.Sprintf("mux(%d services, %d fallbacks)", len(m.services), len(m.fallbacks))
}
