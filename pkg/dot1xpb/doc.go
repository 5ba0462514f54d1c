// Package dot1xpb defines the authenticator management RPC surface
// (SPEC_FULL.md Section 4.12: ListPorts, GetPort, SetPort, WatchPortEvents)
// and a connectrpc.com/connect binding for it.
//
// Wire types and the connect handler/client wiring below are hand-written
// rather than generated from a .proto file, using a small JSON connect.Codec
// (codec.go) in place of a protobuf binary codec. The RPC ergonomics (unary
// and server-streaming handlers, connect.Error codes, interceptors) match
// what protoc-gen-connect-go would produce; only the wire encoding differs.
package dot1xpb
