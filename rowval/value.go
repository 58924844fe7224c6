package rowval

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
)

// ErrContentRead marks a failure to read large content while digesting it.
// It signals a broken collaborator, never a row mismatch.
var ErrContentRead = errors.New("error reading large column content")

// Kind is the variant tag of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	// KindNumeric holds exact numerics (integers of any width and decimals)
	// in a canonical decimal form.
	KindNumeric
	KindFloat
	KindString
	KindTime
	// KindBytes is a fixed byte sequence compared byte-wise.
	KindBytes
	// KindLarge is large sequential content, represented only by its digest
	// and length.
	KindLarge
	// KindOther is any other value, compared by type name and textual form.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumeric:
		return "numeric"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	case KindBytes:
		return "bytes"
	case KindLarge:
		return "large"
	case KindOther:
		return "other"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// DigestSize is the size of the digest kept for large content.
const DigestSize = sha256.Size

// Value is a single column value. The zero Value is NULL.
type Value struct {
	kind Kind

	b      bool
	f      float64
	s      string
	t      time.Time
	bytes  []byte
	digest [DigestSize]byte
	length int64
}

// Null returns the NULL value.
func Null() Value { return Value{} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int(i int64) Value {
	return Value{kind: KindNumeric, s: canonicalDecimal(apd.New(i, 0))}
}

// Decimal returns an exact numeric value. A nil decimal is NULL.
func Decimal(d *apd.Decimal) Value {
	if d == nil {
		return Null()
	}
	return Value{kind: KindNumeric, s: canonicalDecimal(d)}
}

// ParseDecimal parses s as an exact numeric value.
func ParseDecimal(s string) (Value, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Value{}, errors.Wrapf(err, "error parsing decimal %q", s)
	}
	return Decimal(d), nil
}

// Float returns a floating point value. All NaNs are the same value and
// negative zero equals zero.
func Float(f float64) Value {
	switch {
	case math.IsNaN(f):
		f = math.NaN()
	case f == 0:
		f = 0
	}
	return Value{kind: KindFloat, f: f}
}

func String(s string) Value { return Value{kind: KindString, s: s} }

// Time returns a temporal value normalized to UTC.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t.UTC().Round(0)} }

// Bytes returns a byte-wise compared value. The slice is copied.
func Bytes(b []byte) Value {
	if b == nil {
		return Null()
	}
	return Value{kind: KindBytes, bytes: append([]byte{}, b...)}
}

// Large streams r through a digest. Only the digest and the number of bytes
// read are retained.
func Large(r io.Reader) (Value, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return Value{}, errors.Mark(errors.Wrapf(err, "error digesting content after %d bytes", n), ErrContentRead)
	}
	v := Value{kind: KindLarge, length: n}
	copy(v.digest[:], h.Sum(nil))
	return v, nil
}

// LargeDigest builds a large value from a precomputed digest and length.
func LargeDigest(digest [DigestSize]byte, length int64) Value {
	return Value{kind: KindLarge, digest: digest, length: length}
}

func largeBytes(b []byte) Value {
	return LargeDigest(sha256.Sum256(b), int64(len(b)))
}

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Digest returns the content digest and length of a large value.
func (v Value) Digest() ([DigestSize]byte, int64, bool) {
	if v.kind != KindLarge {
		return [DigestSize]byte{}, 0, false
	}
	return v.digest, v.length, true
}

// Equal reports whether a and b are the same value. NULL equals NULL.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumeric, KindString, KindOther:
		return a.s == b.s
	case KindFloat:
		return math.Float64bits(a.f) == math.Float64bits(b.f)
	case KindTime:
		return a.t.Equal(b.t)
	case KindBytes:
		return string(a.bytes) == string(b.bytes)
	case KindLarge:
		return a.length == b.length && a.digest == b.digest
	}
	return false
}

// Equal is shorthand for Equal(v, o).
func (v Value) Equal(o Value) bool { return Equal(v, o) }

// AppendKey appends an encoding of v to buf such that equal values always
// produce equal encodings.
func (v Value) AppendKey(buf []byte) []byte {
	buf = append(buf, byte(v.kind))
	switch v.kind {
	case KindBool:
		if v.b {
			return append(buf, 1)
		}
		return append(buf, 0)
	case KindNumeric, KindString, KindOther:
		buf = binary.AppendUvarint(buf, uint64(len(v.s)))
		return append(buf, v.s...)
	case KindFloat:
		return binary.BigEndian.AppendUint64(buf, math.Float64bits(v.f))
	case KindTime:
		buf = binary.AppendVarint(buf, v.t.Unix())
		return binary.AppendVarint(buf, int64(v.t.Nanosecond()))
	case KindBytes:
		buf = binary.AppendUvarint(buf, uint64(len(v.bytes)))
		return append(buf, v.bytes...)
	case KindLarge:
		buf = binary.AppendVarint(buf, v.length)
		return append(buf, v.digest[:]...)
	}
	return buf
}

// String renders v for reports. Large content renders as its digest and
// length, never as the content itself.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumeric, KindString, KindOther:
		return v.s
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindTime:
		return v.t.Format(time.RFC3339Nano)
	case KindBytes:
		return hex.EncodeToString(v.bytes)
	case KindLarge:
		return fmt.Sprintf("sha256:%x (%d bytes)", v.digest, v.length)
	}
	return fmt.Sprintf("<%s>", v.kind)
}

func canonicalDecimal(d *apd.Decimal) string {
	if d.Form != apd.Finite {
		return d.String()
	}
	if d.IsZero() {
		return "0"
	}
	var r apd.Decimal
	r.Reduce(d)
	return r.Text('f')
}

// Of converts a Go value, as produced by a database driver or declared in
// test code, into a Value.
func Of(in any) (Value, error) {
	if isNilPointer(in) {
		return Null(), nil
	}
	switch v := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return ParseDecimal(strconv.FormatUint(uint64(v), 10))
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		return ParseDecimal(strconv.FormatUint(v, 10))
	case float32:
		return float32Value(v), nil
	case float64:
		return Float(v), nil
	case string:
		return String(v), nil
	case []byte:
		return Bytes(v), nil
	case time.Time:
		return Time(v), nil
	case *apd.Decimal:
		return Decimal(v), nil
	case io.Reader:
		return Large(v)
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return Value{}, errors.Wrapf(err, "error getting driver value of %T", in)
		}
		if _, ok := dv.(driver.Valuer); ok {
			return Value{}, errors.AssertionFailedf("driver value of %T is not a base type", in)
		}
		return Of(dv)
	}

	rv := reflect.ValueOf(in)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		return Of(rv.Elem().Interface())
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return Bytes(b), nil
		}
	}
	if s, ok := in.(fmt.Stringer); ok {
		return Value{kind: KindOther, s: fmt.Sprintf("%T:%s", in, s.String())}, nil
	}
	return Value{kind: KindOther, s: fmt.Sprintf("%T:%v", in, in)}, nil
}

// LargeOf converts a Go value into a large value. Strings and byte slices are
// digested; readers are streamed.
func LargeOf(in any) (Value, error) {
	if isNilPointer(in) {
		return Null(), nil
	}
	switch v := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		switch v.kind {
		case KindNull, KindLarge:
			return v, nil
		case KindString:
			return largeBytes([]byte(v.s)), nil
		case KindBytes:
			return largeBytes(v.bytes), nil
		}
		return Value{}, errors.Newf("cannot use %s value as large content", v.kind)
	case string:
		return largeBytes([]byte(v)), nil
	case []byte:
		if v == nil {
			return Null(), nil
		}
		return largeBytes(v), nil
	case io.Reader:
		return Large(v)
	}
	rv := reflect.ValueOf(in)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Null(), nil
		}
		return LargeOf(rv.Elem().Interface())
	}
	return Value{}, errors.Newf("cannot use %T as large content", in)
}

func isNilPointer(in any) bool {
	rv := reflect.ValueOf(in)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// float32Value widens f through its shortest decimal form, so that a
// float32 equals the float64 parsed from the same text.
func float32Value(f float32) Value {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return Float(float64(f))
	}
	w, err := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	if err != nil {
		return Float(float64(f))
	}
	return Float(w)
}
