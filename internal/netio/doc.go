// Package netio provides the raw-socket and UDP transport collaborators
// for the 802.1X daemons: a PAE group MAC EAPOL socket (AF_PACKET) for
// both authenticator and supplicant use, and a RADIUS client socket for
// the authenticator's AAA back end.
//
// Linux-specific code uses golang.org/x/sys/unix for AF_PACKET raw
// sockets and multicast group membership.
package netio
