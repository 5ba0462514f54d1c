package dot1x

import "fmt"

// derivePortMAC computes a port's unique source MAC by adding portIndex
// to the interface MAC with carry propagation over the low 6 bytes
// (spec.md Section 3/6: "srcMac[i] = ifMac[i] + portIndex (i=5 down to 0,
// carry propagated)").
func derivePortMAC(ifMAC [6]byte, portIndex int) [6]byte {
	out := ifMAC
	carry := portIndex
	for i := 5; i >= 0 && carry > 0; i-- {
		sum := int(out[i]) + carry
		out[i] = byte(sum & 0xFF)
		carry = sum >> 8
	}
	return out
}

// macString formats a MAC address as RADIUS Called/Calling-Station-Id
// attributes expect: ASCII, colon-separated hex octets.
func macString(mac [6]byte) string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
		mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}
