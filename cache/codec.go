package cache

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec names accepted by Config.Codec.
const (
	CodecMsgpack = "msgpack"
	CodecCBOR    = "cbor"
	CodecJSON    = "json"
)

// Codec turns cached values into bytes and back.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// MsgpackCodec uses vmihailenco/msgpack. The zero value is ready to use.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string                       { return CodecMsgpack }
func (MsgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (MsgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// CBORCodec uses fxamacker/cbor with RFC3339Nano timestamps.
// Construct with NewCBORCodec.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCodec builds a CBORCodec. Deterministic selects core deterministic
// encoding (RFC 8949).
func NewCBORCodec(deterministic bool) (CBORCodec, error) {
	var eo cbor.EncOptions
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	} else {
		eo = cbor.PreferredUnsortedEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	enc, err := eo.EncMode()
	if err != nil {
		return CBORCodec{}, err
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return CBORCodec{}, err
	}
	return CBORCodec{enc: enc, dec: dec}, nil
}

func (CBORCodec) Name() string                         { return CodecCBOR }
func (c CBORCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c CBORCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

// JSONCodec uses encoding/json.
type JSONCodec struct{}

func (JSONCodec) Name() string                       { return CodecJSON }
func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// NewCodec returns the codec registered under name.
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", CodecMsgpack:
		return MsgpackCodec{}, nil
	case CodecCBOR:
		return NewCBORCodec(true)
	case CodecJSON:
		return JSONCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}
