package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestRspWireFormat(t *testing.T) {
	rsp := &GetVerifyRsp{Error: 1002, Email: "a@b.c"}
	b, err := Codec{}.Marshal(rsp)
	require.NoError(t, err)

	// field 1 varint 1002, field 2 "a@b.c"
	want := []byte{0x08, 0xea, 0x07, 0x12, 0x05, 'a', '@', 'b', '.', 'c'}
	assert.Equal(t, want, b)
}

func TestRspNegativeErrorAndUnknownFields(t *testing.T) {
	b := (&GetVerifyRsp{Error: -1, Code: "7788"}).marshal()
	// a field this side does not know about
	b = protowire.AppendTag(b, 9, protowire.BytesType)
	b = protowire.AppendString(b, "ignored")
	b = protowire.AppendTag(b, 10, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 7)

	var got GetVerifyRsp
	require.NoError(t, Codec{}.Unmarshal(b, &got))
	assert.Equal(t, GetVerifyRsp{Error: -1, Code: "7788"}, got)
}

func TestTruncatedInput(t *testing.T) {
	b := (&GetVerifyReq{Email: "someone@example.com"}).marshal()

	var req GetVerifyReq
	assert.Error(t, req.unmarshal(b[:len(b)-3]))
}

func TestCodecRejectsForeignTypes(t *testing.T) {
	_, err := Codec{}.Marshal("not a message")
	assert.Error(t, err)
	assert.Error(t, Codec{}.Unmarshal(nil, new(int)))
}
