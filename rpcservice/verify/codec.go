package verify

import (
	"fmt"
)

// Codec speaks the protobuf wire format for the verify messages. It keeps
// the "proto" name so peers see an ordinary application/grpc+proto call.
type Codec struct{}

func (Codec) Name() string {
	return "proto"
}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("verify codec: cannot marshal %T", v)
	}
	return m.marshal(), nil
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("verify codec: cannot unmarshal into %T", v)
	}
	return m.unmarshal(data)
}
