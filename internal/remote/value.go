package remote

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	mssql "github.com/microsoft/go-mssqldb"
)

// Kind enumerates the scalar types a remote column value can take.
type Kind int

const (
	KindNull Kind = iota
	KindInteger
	KindFloat
	KindText
	KindBoolean
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindTimestamp:
		return "timestamp"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a single cell of a remote result set. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
	t    time.Time
}

func Null() Value                 { return Value{} }
func Integer(v int64) Value       { return Value{kind: KindInteger, i: v} }
func Float(v float64) Value       { return Value{kind: KindFloat, f: v} }
func Text(v string) Value         { return Value{kind: KindText, s: v} }
func Boolean(v bool) Value        { return Value{kind: KindBoolean, b: v} }
func Timestamp(v time.Time) Value { return Value{kind: KindTimestamp, t: v} }

// ValueOf converts a value produced by a database/sql driver. Byte slices
// become text: decimals and money as they are, anything that is not valid
// UTF-8 as 0x-prefixed hex. Any type outside the closed set is rendered
// with fmt.
func ValueOf(src interface{}) Value {
	switch v := src.(type) {
	case nil:
		return Null()
	case int64:
		return Integer(v)
	case int:
		return Integer(int64(v))
	case int32:
		return Integer(int64(v))
	case int16:
		return Integer(int64(v))
	case int8:
		return Integer(int64(v))
	case uint8:
		return Integer(int64(v))
	case uint16:
		return Integer(int64(v))
	case uint32:
		return Integer(int64(v))
	case uint64:
		if v > math.MaxInt64 {
			return Text(strconv.FormatUint(v, 10))
		}
		return Integer(int64(v))
	case float64:
		return Float(v)
	case float32:
		return Float(float64(v))
	case bool:
		return Boolean(v)
	case string:
		return Text(v)
	case []byte:
		if !utf8.Valid(v) {
			return Text(hexText(v))
		}
		return Text(string(v))
	case time.Time:
		return Timestamp(v)
	case *time.Time:
		if v == nil {
			return Null()
		}
		return Timestamp(*v)
	default:
		return Text(fmt.Sprint(v))
	}
}

// columnValue converts src using the database type name of its column.
// SQL Server returns uniqueidentifier and binary columns as raw bytes.
func columnValue(dbType string, src interface{}) Value {
	b, ok := src.([]byte)
	if !ok {
		return ValueOf(src)
	}

	switch strings.ToUpper(dbType) {
	case "UNIQUEIDENTIFIER":
		var id mssql.UniqueIdentifier
		if err := id.Scan(b); err != nil {
			return Text(hexText(b))
		}
		return Text(id.String())
	case "BINARY", "VARBINARY", "IMAGE", "BLOB":
		return Text(hexText(b))
	default:
		return ValueOf(b)
	}
}

func hexText(b []byte) string {
	return "0x" + strings.ToUpper(hex.EncodeToString(b))
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Interface returns the native Go value: nil, int64, float64, string, bool
// or time.Time.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	case KindBoolean:
		return v.b
	case KindTimestamp:
		return v.t
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindTimestamp:
		return v.t.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v.Interface())
	}
}

// MarshalJSON renders timestamps as RFC 3339 strings. NaN and infinities have
// no JSON number form and are rendered as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindInteger:
		return strconv.AppendInt(nil, v.i, 10), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return json.Marshal(strconv.FormatFloat(v.f, 'g', -1, 64))
		}
		return json.Marshal(v.f)
	case KindText:
		return json.Marshal(v.s)
	case KindBoolean:
		return strconv.AppendBool(nil, v.b), nil
	case KindTimestamp:
		return json.Marshal(v.t.Format(time.RFC3339Nano))
	default:
		return nil, fmt.Errorf("remote: cannot marshal value of %s", v.kind)
	}
}
