// Package rpcjson registers a JSON codec with the gRPC runtime so the
// spatial and storage calls need no generated message types on this side.
// The peers accept the json content-subtype.
package rpcjson

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name is the content-subtype clients pass on each call.
const Name = "json"

type codec struct{}

func (codec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("rpcjson: marshal %T: %w", v, err)
	}
	return data, nil
}

func (codec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("rpcjson: unmarshal into %T: %w", v, err)
	}
	return nil
}

func (codec) Name() string { return Name }

func init() {
	encoding.RegisterCodec(codec{})
}
