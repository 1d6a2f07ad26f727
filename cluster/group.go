// Package cluster layers optional service discovery and load balancing on
// top of the core server and transport: server.Server and the generated
// client stubs stay entirely unaware of it.
package cluster

import (
	"log"

	"tinyrpc/address"
	"tinyrpc/registry"
	"tinyrpc/server"
	"tinyrpc/transport"
)

// defaultTTL is the etcd lease TTL, in seconds, a Group requests when
// advertising a server.
const defaultTTL = 10

// Group wraps a server.Server with registry advertisement: on Run it
// registers the bound address under serviceName, and on Stop it
// deregisters first, mirroring the teacher's shutdown ordering (registry
// entry removed before the listener closes).
type Group[Req, Rep any] struct {
	serviceName string
	weight      int
	reg         registry.Registry
	srv         *server.Server[Req, Rep]
}

// NewGroup builds a Group advertising serviceName through reg once Run
// succeeds. reg may be nil, in which case Group behaves exactly like a bare
// server.Server with no discovery side effects.
func NewGroup[Req, Rep any](serviceName string, weight int, reg registry.Registry) *Group[Req, Rep] {
	return &Group[Req, Rep]{
		serviceName: serviceName,
		weight:      weight,
		reg:         reg,
		srv:         server.New[Req, Rep](),
	}
}

// Run starts the underlying server and, if a Registry was supplied,
// advertises its bound address.
func (g *Group[Req, Rep]) Run(processor transport.Processor[Req, Rep], t transport.ServerTransport[Req, Rep]) error {
	if err := g.srv.Run(processor, t); err != nil {
		return err
	}
	if g.reg == nil {
		return nil
	}

	addr := g.srv.Addr()
	if _, ok := addr.Socket(); !ok {
		return nil
	}

	instance := registry.ServiceInstance{Addr: addr, Weight: g.weight, Version: "1.0"}
	if err := g.reg.Register(g.serviceName, instance, defaultTTL); err != nil {
		log.Printf("cluster: advertise %s at %s: %v", g.serviceName, instance.Addr, err)
		return err
	}
	return nil
}

// Stop deregisters the advertised instance, if any, then stops the
// underlying server.
func (g *Group[Req, Rep]) Stop() {
	if g.reg != nil {
		addr := g.srv.Addr()
		if _, ok := addr.Socket(); ok {
			if err := g.reg.Deregister(g.serviceName, addr); err != nil {
				log.Printf("cluster: deregister %s at %s: %v", g.serviceName, addr, err)
			}
		}
	}
	g.srv.Stop()
}

// Addr returns the address the underlying server is bound to.
func (g *Group[Req, Rep]) Addr() address.Address {
	return g.srv.Addr()
}
