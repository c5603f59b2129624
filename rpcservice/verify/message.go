package verify

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Messages are encoded by hand with protowire; there is no generated code
// for message.proto in this build.

// GetVerifyReq mirrors message.GetVerifyReq { string email = 1; }
type GetVerifyReq struct {
	Email string
}

// GetVerifyRsp mirrors message.GetVerifyRsp { int32 error = 1; string email = 2; string code = 3; }
type GetVerifyRsp struct {
	Error int32
	Email string
	Code  string
}

type wireMessage interface {
	marshal() []byte
	unmarshal(b []byte) error
}

func (m *GetVerifyReq) marshal() []byte {
	var b []byte
	if m.Email != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, m.Email)
	}
	return b
}

func (m *GetVerifyReq) unmarshal(b []byte) error {
	*m = GetVerifyReq{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(b)
			m.Email = v
			return n, true
		}
		return 0, false
	})
}

func (m *GetVerifyRsp) marshal() []byte {
	var b []byte
	if m.Error != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(m.Error)))
	}
	if m.Email != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, m.Email)
	}
	if m.Code != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, m.Code)
	}
	return b
}

func (m *GetVerifyRsp) unmarshal(b []byte) error {
	*m = GetVerifyRsp{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			m.Error = int32(v)
			return n, true
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.Email = v
			return n, true
		case num == 3 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			m.Code = v
			return n, true
		}
		return 0, false
	})
}

// consumeFields walks b field by field. field reports how many bytes it
// consumed, or false to have an unknown field skipped.
func consumeFields(b []byte, field func(protowire.Number, protowire.Type, []byte) (int, bool)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, known := field(num, typ, b)
		if !known {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return nil
}
