// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package unfurl

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

// ErrForbiddenAddress is returned (wrapped) when a fetch would connect
// to an address the client's policy does not permit.
var ErrForbiddenAddress = errors.New("unfurl: destination address not permitted")

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
// netip does not count it as private, but it is not reachable from the
// public internet either.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// PublicAddress reports whether addr is a globally routable unicast
// address. Loopback, private (RFC 1918, fc00::/7), link-local
// (including 169.254.169.254 cloud metadata), shared, multicast, and
// unspecified addresses are not.
func PublicAddress(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsGlobalUnicast() &&
		!addr.IsPrivate() &&
		!sharedAddressSpace.Contains(addr)
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	// Timeout bounds a whole fetch, redirects included. Zero means
	// no client-side limit.
	Timeout time.Duration

	// Permit decides which resolved addresses may be dialed.
	// Defaults to PublicAddress.
	Permit func(netip.Addr) bool
}

// NewClient returns an HTTP client for fetching user-supplied URLs.
// The address check runs when each connection is dialed, after DNS
// resolution, so it also covers redirects and hostnames that resolve
// to internal addresses. Environment proxies are not used: a proxy
// would be dialed in place of the target and defeat the check.
func NewClient(options ClientOptions) *http.Client {
	permit := options.Permit
	if permit == nil {
		permit = PublicAddress
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control: func(network, address string, _ syscall.RawConn) error {
			return checkAddress(address, permit)
		},
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   options.Timeout,
		Transport: transport,
	}
}

// checkAddress applies permit to a dialed "host:port" address.
func checkAddress(address string, permit func(netip.Addr) bool) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, address)
	}
	if !permit(addr) {
		return fmt.Errorf("%w: %s", ErrForbiddenAddress, addr)
	}
	return nil
}
