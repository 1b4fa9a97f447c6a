package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"hermannm.dev/enumnames"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInteger
	KindFloat
	KindDecimal
	KindBoolean
	KindDateTime
)

var kindNames = enumnames.NewMap(map[Kind]string{
	KindNull:     "NULL",
	KindString:   "STRING",
	KindInteger:  "INTEGER",
	KindFloat:    "FLOAT",
	KindDecimal:  "DECIMAL",
	KindBoolean:  "BOOLEAN",
	KindDateTime: "DATETIME",
})

func (kind Kind) IsValid() bool {
	return kindNames.ContainsEnumValue(kind)
}

func (kind Kind) String() string {
	return kindNames.GetNameOrFallback(kind, "INVALID_KIND")
}

func (kind Kind) MarshalJSON() ([]byte, error) {
	return kindNames.MarshalToNameJSON(kind)
}

func (kind *Kind) UnmarshalJSON(bytes []byte) error {
	return kindNames.UnmarshalFromNameJSON(bytes, kind)
}

// Value is a single nullable cell of a result row. The zero Value is NULL.
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	dec  decimal.Decimal
	bln  bool
	tim  time.Time
}

func Null() Value {
	return Value{}
}

func String(value string) Value {
	return Value{kind: KindString, str: value}
}

func Integer(value int64) Value {
	return Value{kind: KindInteger, num: value}
}

func Float(value float64) Value {
	return Value{kind: KindFloat, flt: value}
}

func Decimal(value decimal.Decimal) Value {
	return Value{kind: KindDecimal, dec: value}
}

func Boolean(value bool) Value {
	return Value{kind: KindBoolean, bln: value}
}

func DateTime(value time.Time) Value {
	return Value{kind: KindDateTime, tim: value}
}

func (value Value) Kind() Kind {
	return value.kind
}

func (value Value) IsNull() bool {
	return value.kind == KindNull
}

func (value Value) AsString() (string, bool) {
	return value.str, value.kind == KindString
}

func (value Value) AsInteger() (int64, bool) {
	return value.num, value.kind == KindInteger
}

func (value Value) AsFloat() (float64, bool) {
	return value.flt, value.kind == KindFloat
}

func (value Value) AsDecimal() (decimal.Decimal, bool) {
	return value.dec, value.kind == KindDecimal
}

func (value Value) AsBoolean() (bool, bool) {
	return value.bln, value.kind == KindBoolean
}

func (value Value) AsDateTime() (time.Time, bool) {
	return value.tim, value.kind == KindDateTime
}

// Any unwraps the value into its Go representation, nil for NULL.
func (value Value) Any() any {
	switch value.kind {
	case KindString:
		return value.str
	case KindInteger:
		return value.num
	case KindFloat:
		return value.flt
	case KindDecimal:
		return value.dec
	case KindBoolean:
		return value.bln
	case KindDateTime:
		return value.tim
	default:
		return nil
	}
}

func (value Value) Equal(other Value) bool {
	if value.kind != other.kind {
		return false
	}
	switch value.kind {
	case KindNull:
		return true
	case KindString:
		return value.str == other.str
	case KindInteger:
		return value.num == other.num
	case KindFloat:
		return value.flt == other.flt || (math.IsNaN(value.flt) && math.IsNaN(other.flt))
	case KindDecimal:
		return value.dec.Equal(other.dec)
	case KindBoolean:
		return value.bln == other.bln
	case KindDateTime:
		return value.tim.Equal(other.tim)
	default:
		return false
	}
}

func (value Value) String() string {
	switch value.kind {
	case KindNull:
		return "NULL"
	case KindDateTime:
		return value.tim.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(value.Any())
	}
}

func (value Value) MarshalJSON() ([]byte, error) {
	switch value.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(value.str)
	case KindInteger:
		return strconv.AppendInt(nil, value.num, 10), nil
	case KindFloat:
		// JSON has no representation for NaN and the infinities.
		if math.IsNaN(value.flt) || math.IsInf(value.flt, 0) {
			return json.Marshal(strconv.FormatFloat(value.flt, 'g', -1, 64))
		}
		return json.Marshal(value.flt)
	case KindDecimal:
		return []byte(value.dec.String()), nil
	case KindBoolean:
		return strconv.AppendBool(nil, value.bln), nil
	case KindDateTime:
		return json.Marshal(value.tim.Format(time.RFC3339Nano))
	default:
		return nil, fmt.Errorf("cannot marshal value of kind %v", value.kind)
	}
}

// UnmarshalJSON decodes a JSON scalar. Strings stay strings (no date sniffing),
// integral numbers become INTEGER when they fit in an int64, other numbers FLOAT.
func (value *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case 'n':
		if string(data) != "null" {
			return fmt.Errorf("invalid JSON value '%s'", data)
		}
		*value = Null()
	case 't', 'f':
		var parsed bool
		if err := json.Unmarshal(data, &parsed); err != nil {
			return err
		}
		*value = Boolean(parsed)
	case '"':
		var parsed string
		if err := json.Unmarshal(data, &parsed); err != nil {
			return err
		}
		*value = String(parsed)
	case '{', '[':
		return fmt.Errorf("expected JSON scalar, got '%s'", data)
	default:
		if integer, err := strconv.ParseInt(string(data), 10, 64); err == nil {
			*value = Integer(integer)
			return nil
		}
		float, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid JSON number '%s'", data)
		}
		*value = Float(float)
	}

	return nil
}
