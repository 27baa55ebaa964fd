package dispatch

import (
	"bytes"
	"encoding/json"
	"mime"

	"github.com/vmihailenco/msgpack/v5"
)

// Media types understood by the add operation.
const (
	MediaTypeJSON    = "application/json"
	MediaTypeMsgpack = "application/msgpack"
)

// Codec decodes request payloads into registered item types.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Decode must return an error rather than a partially filled value
// the caller cannot detect.
type Codec interface {
	// ContentType returns the canonical media type.
	ContentType() string

	// Decode parses data into v, which is a pointer.
	Decode(data []byte, v any) error

	// Encode serializes v.
	Encode(v any) ([]byte, error)
}

// JSONCodec is the default codec.
type JSONCodec struct{}

func (JSONCodec) ContentType() string { return MediaTypeJSON }

func (JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// MsgpackCodec decodes MessagePack payloads. Struct fields are matched by
// their json tags so one set of tags serves both codecs.
type MsgpackCodec struct{}

func (MsgpackCodec) ContentType() string { return MediaTypeMsgpack }

func (MsgpackCodec) Decode(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

func (MsgpackCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CodecFor selects a codec from a Content-Type header value.
// Anything other than a MessagePack media type decodes as JSON.
func CodecFor(contentType string) Codec {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return JSONCodec{}
	}
	switch mediaType {
	case MediaTypeMsgpack, "application/x-msgpack", "application/vnd.msgpack":
		return MsgpackCodec{}
	default:
		return JSONCodec{}
	}
}

var (
	_ Codec = JSONCodec{}
	_ Codec = MsgpackCodec{}
)
