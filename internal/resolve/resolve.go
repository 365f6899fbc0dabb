// Package resolve resolves UDP tracker hostnames to a usable socket
// address, the way internal/tracker.ResolveHost does for rain's announce
// client.
package resolve

import (
	"context"
	"errors"
	"net"
	"strconv"
)

// UDPAddr resolves hostport (as found in a udp:// tracker URL's host) to
// a *net.UDPAddr. It prefers an IPv4 result when the host resolves to
// more than one address but does not reject an IPv6-only result, per the
// library's "no IPv6-only negotiation beyond what the transport gives us"
// non-goal.
func UDPAddr(ctx context.Context, hostport string) (*net.UDPAddr, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	if ip := net.ParseIP(host); ip != nil {
		return &net.UDPAddr{IP: ip, Port: port}, nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, errors.New("resolve: no addresses found for " + host)
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return &net.UDPAddr{IP: v4, Port: port}, nil
		}
	}
	return &net.UDPAddr{IP: addrs[0].IP, Port: port}, nil
}
