// Package address defines the endpoint identifier shared by every transport.
//
// An Address is either a process-local symbolic name (Local) or a resolvable
// socket address (Socket). Only Socket is meaningful to the TCP transport;
// Local exists so alternative, non-network transports can share the type.
package address

import (
	"encoding/json"
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// Kind distinguishes the two shapes an Address can take.
type Kind int

const (
	// Local names a process-local endpoint, opaque to the runtime.
	Local Kind = iota
	// Socket names a resolvable host:port endpoint.
	Socket
)

// Address is a tagged union: exactly one of the two shapes below.
type Address struct {
	kind Kind
	name string
	addr *net.TCPAddr
}

// FromLocal builds a process-local address identified by name.
func FromLocal(name string) Address {
	return Address{kind: Local, name: name}
}

// FromTCPAddr builds a resolvable socket address.
func FromTCPAddr(addr *net.TCPAddr) Address {
	return Address{kind: Socket, addr: addr}
}

// Parse classifies s the way the original Rust Address::from_str does: a
// pure literal-IP host:port parse, no DNS resolution. Anything that is not
// a literal IP address with a port becomes Local, including bare hostnames.
func Parse(s string) Address {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{kind: Local, name: s}
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		return Address{kind: Local, name: s}
	}

	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Address{kind: Local, name: s}
	}

	return Address{kind: Socket, addr: &net.TCPAddr{IP: ip.AsSlice(), Port: int(port), Zone: ip.Zone()}}
}

// Kind reports which shape the address has.
func (a Address) Kind() Kind {
	return a.kind
}

// Socket returns the underlying TCP address and true iff this is a Socket
// address.
func (a Address) Socket() (*net.TCPAddr, bool) {
	if a.kind != Socket {
		return nil, false
	}
	return a.addr, true
}

// String renders the address the way the reference transport and the
// server's startup/shutdown log lines expect to print it.
func (a Address) String() string {
	switch a.kind {
	case Socket:
		return a.addr.String()
	default:
		return a.name
	}
}

// MarshalJSON renders an Address as its string form, so registries and
// other components that persist an Address (e.g. etcd-backed service
// discovery) get the same hand-rolled-over-struct-tags framing the message
// package uses for its envelopes, rather than exposing the private kind/addr
// fields.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON parses the string form back through Parse, so round-tripping
// an Address through JSON reclassifies it exactly as a fresh Parse call
// would (Local vs. Socket), rather than trusting a stored tag.
func (a *Address) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*a = Parse(s)
	return nil
}

var _ fmt.Stringer = Address{}
