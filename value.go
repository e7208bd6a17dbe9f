package kvdb

import (
	"encoding/json"

	"github.com/cuemby/kvdb/internal/codec"
)

// Value is the closed sum type stored under every key: String, Integer, or
// Json. It is a type alias over the internal codec representation so the
// wire encoding and the public value type never drift apart.
type Value = codec.Value

// String constructs a String value.
func String(s string) Value { return codec.String(s) }

// Int constructs an Integer value holding a signed 64-bit number.
func Int(i int64) Value { return codec.Int(i) }

// JSON constructs a Json value from an already-marshaled document. The
// document must be well-formed JSON; construction fails otherwise so a
// later write can never fail to encode.
func JSON(doc json.RawMessage) (Value, error) {
	return codec.JSON(doc)
}
