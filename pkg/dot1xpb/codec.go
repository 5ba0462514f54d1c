package dot1xpb

import (
	"encoding/json"
	"fmt"
)

// jsonCodec is a connectrpc.com/connect.Codec that marshals requests and
// responses as JSON, used in place of the protobuf binary codec the
// teacher's generated client/server pulls in automatically from a .proto
// file (see doc.go).
type jsonCodec struct{}

// Name satisfies connect.Codec; "json" is also one of connect's built-in
// content-type negotiation names, so curl/grpcurl-style JSON calls work
// against this server without extra tooling.
func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal into %T: %w", v, err)
	}
	return nil
}
