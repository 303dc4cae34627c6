package forwarding

import (
	"fmt"
	"net"
	"net/netip"
)

// IPv4ToUint32 encodes addr as a big-endian 32-bit integer, the layout the
// switch uses for IPv4 match keys and action data.
//
// IPv4-mapped IPv6 addresses are accepted; other IPv6 addresses are rejected.
func IPv4ToUint32(addr netip.Addr) (uint32, error) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return 0, fmt.Errorf("address %s is not IPv4", addr)
	}
	b := addr.As4()

	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// MACToUint64 encodes a 48-bit hardware address as an integer, first octet most significant.
func MACToUint64(mac net.HardwareAddr) (uint64, error) {
	if len(mac) != 6 {
		return 0, fmt.Errorf("hardware address %q is not 48-bit", mac.String())
	}

	var v uint64
	for _, octet := range mac {
		v = v<<8 | uint64(octet)
	}

	return v, nil
}
