package serializer

import (
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-msgpack/v2/codec"
	"github.com/lk2023060901/dicedeck/pkg/pool/bytebuff"
)

// defaultSizeHint 单个骰子快照编码后通常在 256 字节以内
const defaultSizeHint = 256

// msgpackHandle 结构体按 codec 标签编码，str8 直接解为 string
// 无类型的 map 解成 map[string]any，方便 JSON 与 msgpack 载荷互通
var msgpackHandle = newMsgpackHandle()

func newMsgpackHandle() *codec.MsgpackHandle {
	h := &codec.MsgpackHandle{}
	h.MapType = reflect.TypeOf(map[string]any(nil))
	h.RawToString = true
	h.WriteExt = true
	return h
}

// EncodeWithSizeHint 在池化 buffer 上编码，返回独立副本
func EncodeWithSizeHint(v any, sizeHint int) ([]byte, error) {
	buf := bytebuff.Get(sizeHint)
	defer bytebuff.Put(buf)

	if err := codec.NewEncoder(buf, msgpackHandle).Encode(v); err != nil {
		return nil, errors.Wrap(err, "msgpack encode")
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

// Decode 解码整段数据
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return errors.New("msgpack decode: empty payload")
	}
	if err := codec.NewDecoderBytes(data, msgpackHandle).Decode(v); err != nil {
		return errors.Wrap(err, "msgpack decode")
	}
	return nil
}
