// Package switchport implements the out-of-scope "switch driver"
// collaborator named by spec.md Section 1 (pinning the PAE group MAC to
// the CPU port, and applying per-port forwarding state) against an Open
// vSwitch instance via its OVSDB management protocol
// (github.com/ovn-org/libovsdb).
//
// Authorization state is expressed as dynamic VLAN membership: an
// unauthorized port is tagged into a quarantine VLAN that reaches only
// the RADIUS/DHCP/DNS services a supplicant needs to authenticate;
// authorization moves the port's Port table row to the production VLAN
// tag carried in configuration. This mirrors how real 802.1X-capable
// switches implement "force-unauth means no production traffic" without
// needing true port shutdown.
package switchport
