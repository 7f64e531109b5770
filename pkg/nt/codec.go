package nt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Data type indices of binary value frames.
const (
	typeBoolean = 0
	typeDouble  = 1
	typeInt     = 2
	typeFloat   = 3
	typeString  = 4
)

// typeNames maps data type indices to announce type strings.
var typeNames = map[int]string{
	typeBoolean: "boolean",
	typeDouble:  "double",
	typeInt:     "int",
	typeFloat:   "float",
	typeString:  "string",
}

// timeSyncID is the topic id of round-trip time frames.
const timeSyncID = -1

// controlMessage is one entry of a JSON text frame.
type controlMessage struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type subscribeParams struct {
	Topics  []string         `json:"topics"`
	SubUID  int64            `json:"subuid"`
	Options subscribeOptions `json:"options"`
}

type subscribeOptions struct {
	Prefix bool `json:"prefix"`
}

type publishParams struct {
	Name       string                 `json:"name"`
	PubUID     int64                  `json:"pubuid"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
}

type announceParams struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type unannounceParams struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

// encodeControl builds a text frame holding one message.
func encodeControl(method string, params interface{}) ([]byte, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}
	return json.Marshal([]controlMessage{{Method: method, Params: raw}})
}

// decodeControl splits a text frame into its messages.
func decodeControl(data []byte) ([]controlMessage, error) {
	var msgs []controlMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decode text frame: %w", err)
	}
	return msgs, nil
}

// valueFrame is one binary value update: [id, time µs, type, value].
type valueFrame struct {
	ID    int64
	Time  int64
	Type  int
	Value interface{}
}

// encodeValues packs frames back to back into one binary message.
func encodeValues(frames ...valueFrame) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	for _, f := range frames {
		if err := enc.EncodeArrayLen(4); err != nil {
			return nil, err
		}
		if err := enc.EncodeInt(f.ID); err != nil {
			return nil, err
		}
		if err := enc.EncodeInt(f.Time); err != nil {
			return nil, err
		}
		if err := enc.EncodeInt(int64(f.Type)); err != nil {
			return nil, err
		}

		var err error
		switch v := f.Value.(type) {
		case float64:
			err = enc.EncodeFloat64(v)
		case float32:
			err = enc.EncodeFloat32(v)
		case int64:
			err = enc.EncodeInt(v)
		case bool:
			err = enc.EncodeBool(v)
		case string:
			err = enc.EncodeString(v)
		default:
			err = enc.Encode(v)
		}
		if err != nil {
			return nil, fmt.Errorf("encode value of topic %d: %w", f.ID, err)
		}
	}

	return buf.Bytes(), nil
}

// decodeValues unpacks every frame in a binary message.
func decodeValues(data []byte) ([]valueFrame, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	var frames []valueFrame

	for {
		n, err := dec.DecodeArrayLen()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, fmt.Errorf("decode value frame: %w", err)
		}
		if n != 4 {
			return frames, fmt.Errorf("decode value frame: %d elements, want 4", n)
		}

		var f valueFrame
		if f.ID, err = dec.DecodeInt64(); err != nil {
			return frames, fmt.Errorf("decode topic id: %w", err)
		}
		if f.Time, err = dec.DecodeInt64(); err != nil {
			return frames, fmt.Errorf("decode timestamp: %w", err)
		}
		if f.Type, err = dec.DecodeInt(); err != nil {
			return frames, fmt.Errorf("decode type: %w", err)
		}
		if f.Value, err = dec.DecodeInterfaceLoose(); err != nil {
			return frames, fmt.Errorf("decode value: %w", err)
		}
		frames = append(frames, f)
	}
}

// toFloat converts a decoded numeric value.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}
