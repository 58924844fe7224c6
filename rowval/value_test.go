package rowval

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func mustOf(t *testing.T, v any) Value {
	ret, err := Of(v)
	require.NoError(t, err)
	return ret
}

func TestEqual(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		desc     string
		a, b     any
		expected bool
	}{
		{desc: "both null", a: nil, b: nil, expected: true},
		{desc: "null and value", a: nil, b: int64(1), expected: false},
		{desc: "value and null", a: "x", b: nil, expected: false},
		{desc: "null pointer", a: (*string)(nil), b: nil, expected: true},
		{desc: "int widths", a: int32(42), b: int64(42), expected: true},
		{desc: "int and uint", a: uint16(42), b: 42, expected: true},
		{desc: "int and decimal", a: 10, b: apd.New(1000, -2), expected: true},
		{desc: "decimal trailing zeros", a: mustDecimal(t, "1.50"), b: mustDecimal(t, "1.5"), expected: true},
		{desc: "decimal zero sign", a: mustDecimal(t, "-0.00"), b: 0, expected: true},
		{desc: "different ints", a: 1, b: 2, expected: false},
		{desc: "large uint", a: uint64(math.MaxUint64), b: mustDecimal(t, "18446744073709551615"), expected: true},
		{desc: "int and float", a: 1, b: 1.0, expected: false},
		{desc: "float widths", a: float32(0.5), b: 0.5, expected: true},
		{desc: "float32 shortest form", a: float32(1.1), b: 1.1, expected: true},
		{desc: "float32 differs", a: float32(1.1), b: 1.2, expected: false},
		{desc: "nil reader", a: (*bytes.Reader)(nil), b: nil, expected: true},
		{desc: "nan", a: math.NaN(), b: math.NaN(), expected: true},
		{desc: "negative zero", a: math.Copysign(0, -1), b: 0.0, expected: true},
		{desc: "strings", a: "abc", b: "abc", expected: true},
		{desc: "string and bytes", a: "abc", b: []byte("abc"), expected: false},
		{desc: "bool", a: true, b: false, expected: false},
		{desc: "time zones", a: ts, b: ts.In(loc), expected: true},
		{desc: "time pointer", a: &ts, b: ts, expected: true},
		{desc: "bytes", a: []byte{1, 2, 3}, b: []byte{1, 2, 3}, expected: true},
		{desc: "bytes differ", a: []byte{1, 2, 3}, b: []byte{1, 2, 4}, expected: false},
		{desc: "fixed array", a: [4]byte{1, 2, 3, 4}, b: []byte{1, 2, 3, 4}, expected: true},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			a, b := mustOf(t, tc.a), mustOf(t, tc.b)
			require.Equal(t, tc.expected, Equal(a, b))
			require.Equal(t, tc.expected, Equal(b, a))
			require.True(t, Equal(a, a))
			require.True(t, Equal(b, b))
			if tc.expected {
				require.Equal(t, NewRow(a).Hash(), NewRow(b).Hash())
			}
		})
	}
}

func mustDecimal(t *testing.T, s string) *apd.Decimal {
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestLarge(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789"), 100000)
	other := append([]byte{}, content...)
	changed := append([]byte{}, content...)
	changed[len(changed)/2] ^= 0xff

	a, err := Large(bytes.NewReader(content))
	require.NoError(t, err)
	b, err := Large(bytes.NewReader(other))
	require.NoError(t, err)
	c, err := Large(bytes.NewReader(changed))
	require.NoError(t, err)

	require.Equal(t, KindLarge, a.Kind())
	require.True(t, Equal(a, b))
	require.False(t, Equal(a, c))

	_, length, ok := a.Digest()
	require.True(t, ok)
	require.EqualValues(t, len(content), length)
	require.True(t, strings.HasPrefix(a.String(), "sha256:"))
	require.True(t, strings.HasSuffix(a.String(), "(1000000 bytes)"))

	t.Run("same digest different length", func(t *testing.T) {
		d, _, _ := a.Digest()
		require.False(t, Equal(LargeDigest(d, 1), a))
	})

	t.Run("large of", func(t *testing.T) {
		fromStr, err := LargeOf(string(content))
		require.NoError(t, err)
		require.True(t, Equal(a, fromStr))
		fromBytes, err := LargeOf(content)
		require.NoError(t, err)
		require.True(t, Equal(a, fromBytes))
		nilReader, err := LargeOf((*bytes.Reader)(nil))
		require.NoError(t, err)
		require.True(t, nilReader.IsNull())
		null, err := LargeOf(nil)
		require.NoError(t, err)
		require.True(t, null.IsNull())
		_, err = LargeOf(1)
		require.Error(t, err)
	})

	t.Run("read error", func(t *testing.T) {
		_, err := Large(iotest.ErrReader(errors.New("boom")))
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrContentRead))
	})
}

func TestString(t *testing.T) {
	for _, tc := range []struct {
		v        any
		expected string
	}{
		{v: nil, expected: "NULL"},
		{v: 10, expected: "10"},
		{v: mustDecimal(t, "12.3400"), expected: "12.34"},
		{v: 1.5, expected: "1.5"},
		{v: "abc", expected: "abc"},
		{v: []byte{0xde, 0xad}, expected: "dead"},
		{v: true, expected: "true"},
		{v: time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC), expected: "2023-05-01T10:00:00Z"},
	} {
		t.Run(tc.expected, func(t *testing.T) {
			require.Equal(t, tc.expected, mustOf(t, tc.v).String())
		})
	}
}

func TestRow(t *testing.T) {
	a, err := MakeRow(1, "user1", nil)
	require.NoError(t, err)
	b, err := MakeRow(int64(1), "user1", nil)
	require.NoError(t, err)
	c, err := MakeRow(1, "user1", "x")
	require.NoError(t, err)

	require.True(t, a.Equal(b))
	require.Equal(t, a.Hash(), b.Hash())
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(NewRow(Int(1))))
	require.Equal(t, "(1, user1, NULL)", a.String())

	vals := a.Values()
	vals[0] = String("mutated")
	require.Equal(t, "1", a.At(0).String())
}
