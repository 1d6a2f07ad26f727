package cluster

import (
	"tinyrpc/address"
	"tinyrpc/loadbalance"
	"tinyrpc/registry"
	"tinyrpc/rpcerr"
)

// Resolver turns a service name into one dialable address.Address by
// combining discovery with load balancing. It is a client-side concern
// entirely separate from the generated client stub: build a Resolver,
// call Resolve, and hand the result to a fresh transport.ClientTransport.
type Resolver struct {
	reg registry.Registry
	bal loadbalance.Balancer
}

// NewResolver pairs a Registry with a Balancer.
func NewResolver(reg registry.Registry, bal loadbalance.Balancer) *Resolver {
	return &Resolver{reg: reg, bal: bal}
}

// Resolve discovers the instances currently registered under serviceName
// and picks one via the configured Balancer.
func (r *Resolver) Resolve(serviceName string) (address.Address, error) {
	instances, err := r.reg.Discover(serviceName)
	if err != nil {
		return address.Address{}, rpcerr.FromIO(err)
	}
	if len(instances) == 0 {
		return address.Address{}, rpcerr.NewNoSocketAddress()
	}

	instance, err := r.bal.Pick(instances)
	if err != nil {
		return address.Address{}, rpcerr.FromIO(err)
	}
	return instance.Addr, nil
}
