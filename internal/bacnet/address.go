package bacnet

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// DefaultPort is the standard BACnet/IP UDP port (0xBAC0).
const DefaultPort = 47808

// Address is an opaque transport address. BACnet/IP devices carry an IP
// and port; devices behind a router carry a network number and a MAC
// (e.g. an MSTP station address) and are not IP-mappable.
type Address struct {
	// IP and Port are set for BACnet/IP addresses.
	IP   netip.Addr
	Port uint16

	// Net and MAC are set for routed, non-IP addresses.
	Net uint16
	MAC []byte
}

// IPAddress builds a BACnet/IP address.
func IPAddress(ip netip.Addr, port uint16) Address {
	if port == 0 {
		port = DefaultPort
	}
	return Address{IP: ip, Port: port}
}

// RemoteAddress builds a routed address from a network number and MAC.
func RemoteAddress(net uint16, mac []byte) Address {
	return Address{Net: net, MAC: append([]byte(nil), mac...)}
}

// ParseAddress parses "10.0.0.5", "10.0.0.5:47809", or "200:1f" (network
// number and hex MAC) into an Address.
func ParseAddress(s string) (Address, error) {
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return IPAddress(ap.Addr(), ap.Port()), nil
	}
	if ip, err := netip.ParseAddr(s); err == nil {
		return IPAddress(ip, DefaultPort), nil
	}
	netPart, macPart, ok := strings.Cut(s, ":")
	if ok {
		net, err := strconv.ParseUint(netPart, 10, 16)
		if err != nil {
			return Address{}, fmt.Errorf("parse address %q: bad network number", s)
		}
		mac, err := hex.DecodeString(macPart)
		if err != nil {
			return Address{}, fmt.Errorf("parse address %q: bad MAC", s)
		}
		return RemoteAddress(uint16(net), mac), nil
	}
	return Address{}, fmt.Errorf("parse address %q: unrecognized form", s)
}

// IsIP reports whether the address maps to an IP address.
func (a Address) IsIP() bool {
	return a.IP.IsValid()
}

// String renders the address. The default BACnet port is omitted so that
// IP addresses read plainly ("10.0.0.5"); non-IP addresses render as
// "net:mac-hex".
func (a Address) String() string {
	if a.IsIP() {
		if a.Port == DefaultPort || a.Port == 0 {
			return a.IP.String()
		}
		return netip.AddrPortFrom(a.IP, a.Port).String()
	}
	return fmt.Sprintf("%d:%x", a.Net, a.MAC)
}

// Key returns the registry/correlation key for the address.
func (a Address) Key() string {
	if a.IsIP() {
		port := a.Port
		if port == 0 {
			port = DefaultPort
		}
		return netip.AddrPortFrom(a.IP, port).String()
	}
	return fmt.Sprintf("%d:%x", a.Net, a.MAC)
}

// Equal reports whether two addresses refer to the same endpoint.
func (a Address) Equal(b Address) bool {
	return a.Key() == b.Key()
}
