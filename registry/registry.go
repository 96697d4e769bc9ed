// Package registry resolves RpcStream component_id values (see
// rpcstream.Getter) to locally-held Invokers, announcing their presence in
// etcd the way the teacher's registry package announced ServiceInstance
// addresses — except the thing being discovered here is a component_id a
// remote can tunnel into, not a dialable network address. See spec.md §4.9
// and the component registry in SPEC_FULL.md §4.11.
package registry

// ComponentInstance describes one announced component, mirroring the
// teacher's ServiceInstance shape (Addr/Weight/Version) so the same
// discovery/weighting conventions carry over even though RpcStream
// components aren't dialed directly.
type ComponentInstance struct {
	ComponentID string
	Addr        string
	Weight      int
	Version     string
}

// Components is the registry contract: announce a locally-served component,
// withdraw it, and discover/watch what else is announced. Grounded on the
// teacher's registry.Registry interface (Register/Deregister/Discover/
// Watch), renamed from service addresses to component ids.
type Components interface {
	Register(componentID string, instance ComponentInstance, ttlSeconds int64) error
	Deregister(componentID string, addr string) error
	Discover(componentID string) ([]ComponentInstance, error)
	Watch(componentID string) <-chan []ComponentInstance
}
