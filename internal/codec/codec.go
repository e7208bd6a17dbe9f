// Package codec implements the self-delimiting textual encoding for kvdb's
// three value variants: String, Integer, and Json.
package codec

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/cuemby/kvdb/kvdberr"
)

// Kind tags which variant a Value holds.
type Kind byte

const (
	KindString Kind = '+'
	KindInt    Kind = ':'
	KindJSON   Kind = '?'
)

var crlf = []byte("\r\n")

// Value is the closed sum type stored under every key: exactly one of the
// three fields below is meaningful, selected by Kind.
type Value struct {
	Kind Kind
	Str  string
	Int  int64
	JSON json.RawMessage
}

// String constructs a String value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Int constructs an Integer value.
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

// JSON constructs a Json value from an already-encoded document. The
// document is validated at construction time so a later Encode cannot fail.
func JSON(doc json.RawMessage) (Value, error) {
	if !json.Valid(doc) {
		return Value{}, kvdberr.New("codec.JSON", kvdberr.JSONParseError)
	}
	return Value{Kind: KindJSON, JSON: append(json.RawMessage(nil), doc...)}, nil
}

// Equal reports whether two values have the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindInt:
		return v.Int == o.Int
	case KindJSON:
		return bytes.Equal(v.JSON, o.JSON)
	default:
		return false
	}
}

// Encode produces tag || payload || CRLF for v.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(v.Kind))
	switch v.Kind {
	case KindString:
		buf.WriteString(v.Str)
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.Int, 10))
	case KindJSON:
		buf.Write(v.JSON)
	}
	buf.Write(crlf)
	return buf.Bytes()
}

// Decode parses a tag||payload||CRLF record produced by Encode.
func Decode(b []byte) (Value, error) {
	if len(b) < 2 || !bytes.HasSuffix(b, crlf) {
		return Value{}, kvdberr.New("codec.Decode", kvdberr.InvalidSerializedString)
	}
	tag := Kind(b[0])
	payload := b[1 : len(b)-2]

	switch tag {
	case KindString:
		return Value{Kind: KindString, Str: string(payload)}, nil
	case KindInt:
		n, err := strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			return Value{}, kvdberr.Wrap("codec.Decode", kvdberr.InvalidSerializedString, err)
		}
		return Value{Kind: KindInt, Int: n}, nil
	case KindJSON:
		if !json.Valid(payload) {
			return Value{}, kvdberr.New("codec.Decode", kvdberr.JSONParseError)
		}
		return Value{Kind: KindJSON, JSON: append(json.RawMessage(nil), payload...)}, nil
	default:
		return Value{}, kvdberr.New("codec.Decode", kvdberr.InvalidSerializedString)
	}
}
