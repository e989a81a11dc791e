package serializer

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrUnknownCodec 未知的编码名
var ErrUnknownCodec = errors.New("serializer: unknown codec")

// Serializer 序列化器接口
type Serializer interface {
	// Serialize 序列化
	Serialize(v any) ([]byte, error)
	// Deserialize 反序列化
	Deserialize(data []byte, v any) error
	// ContentType 内容类型，同时用作 HTTP Content-Type 头
	ContentType() string
}

// JSON JSON 序列化器
type JSON struct{}

// NewJSON 创建 JSON 序列化器
func NewJSON() *JSON {
	return &JSON{}
}

func (s *JSON) Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (s *JSON) Deserialize(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (s *JSON) ContentType() string {
	return "application/json"
}

// Msgpack msgpack 序列化器，走 bytebuff 池
type Msgpack struct {
	sizeHint int
}

// NewMsgpack 创建 msgpack 序列化器，sizeHint<=0 时使用默认值
func NewMsgpack(sizeHint int) *Msgpack {
	if sizeHint <= 0 {
		sizeHint = defaultSizeHint
	}
	return &Msgpack{sizeHint: sizeHint}
}

func (s *Msgpack) Serialize(v any) ([]byte, error) {
	return EncodeWithSizeHint(v, s.sizeHint)
}

func (s *Msgpack) Deserialize(data []byte, v any) error {
	return Decode(data, v)
}

func (s *Msgpack) ContentType() string {
	return "application/msgpack"
}

// ByName 按配置名获取序列化器: "json" 或 "msgpack"
func ByName(name string) (Serializer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return NewJSON(), nil
	case "msgpack":
		return NewMsgpack(0), nil
	default:
		return nil, errors.Wrapf(ErrUnknownCodec, "codec %q", name)
	}
}
