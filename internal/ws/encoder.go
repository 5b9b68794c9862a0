package ws

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encoder converts JSON messages to the binary wire format: a
// google.protobuf.Struct, zstd-compressed.
type Encoder struct {
	zstdEncoder *zstd.Encoder
}

// NewEncoder creates a new Encoder with Zstd compression.
func NewEncoder() (*Encoder, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	return &Encoder{zstdEncoder: enc}, nil
}

// Encode converts a JSON object to Zstd-compressed protobuf.
func (e *Encoder) Encode(jsonData []byte) ([]byte, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(jsonData, &s); err != nil {
		return nil, fmt.Errorf("unmarshal json into struct: %w", err)
	}

	pbData, err := proto.Marshal(&s)
	if err != nil {
		return nil, fmt.Errorf("marshal protobuf: %w", err)
	}

	return e.zstdEncoder.EncodeAll(pbData, nil), nil
}

// Decode reverses Encode. Clients written in Go can use it directly.
func Decode(data []byte) (*structpb.Struct, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	pbData, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	var s structpb.Struct
	if err := proto.Unmarshal(pbData, &s); err != nil {
		return nil, fmt.Errorf("unmarshal protobuf: %w", err)
	}
	return &s, nil
}

// Close releases encoder resources.
func (e *Encoder) Close() {
	if e.zstdEncoder != nil {
		e.zstdEncoder.Close()
	}
}
