// etcd here is a "distributed phonebook" for components, the same pattern
// the teacher used for service instances:
//
//	Key:   /srpc/components/{componentID}/{Addr}
//	Value: JSON-encoded ComponentInstance
//
// Registration uses TTL-based leases: if the announcing process crashes,
// the lease expires and the entry is removed automatically.
package registry

import (
	"context"
	"encoding/json"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"

	"srpc/rpc"
)

// EtcdComponents implements Components using etcd v3, and additionally
// implements rpcstream.Getter's signature (Get) over a local table of
// Invokers the caller has registered for the component ids it serves
// itself. Resolution of locally-served components never touches etcd;
// etcd only carries presence/discovery metadata for components served by
// other processes, which this type does not dial — that belongs to a
// transport layer outside this repo's scope.
type EtcdComponents struct {
	client *clientv3.Client

	mu    sync.RWMutex
	local map[string]rpc.Invoker
}

// NewEtcdComponents connects to the given etcd endpoints.
func NewEtcdComponents(endpoints []string) (*EtcdComponents, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdComponents{client: c, local: make(map[string]rpc.Invoker)}, nil
}

// RegisterLocal makes invoker resolvable via Get for componentID, for
// components this process serves itself (as opposed to ones merely
// announced in etcd for discovery).
func (r *EtcdComponents) RegisterLocal(componentID string, invoker rpc.Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.local[componentID] = invoker
}

// DeregisterLocal removes a locally-resolvable component.
func (r *EtcdComponents) DeregisterLocal(componentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.local, componentID)
}

// Get implements the rpcstream.Getter function signature: it resolves
// componentID against the local table only. The release function is a
// no-op since local Invokers have no per-call acquisition cost.
func (r *EtcdComponents) Get(componentID string) (rpc.Invoker, func(), error) {
	r.mu.RLock()
	inv, ok := r.local[componentID]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, nil
	}
	return inv, func() {}, nil
}

const componentsPrefix = "/srpc/components/"

// Register announces instance under componentID with a TTL-based lease:
// create the lease, put the key, then keep the lease alive in the
// background. Deregister deletes the key but does not revoke the lease or
// stop the keep-alive.
func (r *EtcdComponents) Register(componentID string, instance ComponentInstance, ttlSeconds int64) error {
	ctx := context.Background()

	lease, err := r.client.Grant(ctx, ttlSeconds)
	if err != nil {
		return err
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	key := componentsPrefix + componentID + "/" + instance.Addr
	if _, err := r.client.Put(ctx, key, string(val), clientv3.WithLease(lease.ID)); err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}
	go func() {
		for range ch {
		}
	}()
	return nil
}

// Deregister withdraws a previously announced instance.
func (r *EtcdComponents) Deregister(componentID string, addr string) error {
	ctx := context.Background()
	_, err := r.client.Delete(ctx, componentsPrefix+componentID+"/"+addr)
	return err
}

// Discover lists all instances currently announced for componentID.
func (r *EtcdComponents) Discover(componentID string) ([]ComponentInstance, error) {
	ctx := context.Background()
	prefix := componentsPrefix + componentID + "/"

	resp, err := r.client.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]ComponentInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var inst ComponentInstance
		if err := json.Unmarshal(kv.Value, &inst); err != nil {
			continue
		}
		instances = append(instances, inst)
	}
	return instances, nil
}

// Watch emits the updated instance list for componentID whenever etcd
// reports a change under its prefix.
func (r *EtcdComponents) Watch(componentID string) <-chan []ComponentInstance {
	ctx := context.Background()
	out := make(chan []ComponentInstance, 1)
	prefix := componentsPrefix + componentID + "/"

	go func() {
		watchChan := r.client.Watch(ctx, prefix, clientv3.WithPrefix())
		for range watchChan {
			instances, err := r.Discover(componentID)
			if err != nil {
				continue
			}
			out <- instances
		}
	}()

	return out
}
