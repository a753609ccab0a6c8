package clusterserver

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// CodecName is the codec name negotiated on the wire.
const CodecName = "json"

// JSONCodec marshals plain Go structs with encoding/json.
//
// connect-go's built-in "json" codec only accepts protobuf messages; this
// codec replaces it for the cluster service.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

// Name implements connect.Codec.
func (JSONCodec) Name() string { return CodecName }

// Marshal implements connect.Codec.
func (JSONCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", msg, err)
	}
	return data, nil
}

// Unmarshal implements connect.Codec.
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("unmarshal %T: %w", msg, err)
	}
	return nil
}
