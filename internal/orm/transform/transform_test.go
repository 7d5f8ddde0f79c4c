package transform

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForType(t *testing.T) {
	tests := []struct {
		name string
		want Transform
	}{
		{"boolean", Boolean{}},
		{"number", Number{}},
		{"decimal", Number{}},
		{"float", Number{}},
		{"integer", Integer{}},
		{"string", String{}},
		{"text", String{}},
		{"primary_key", PrimaryKey{}},
		{"binary", Binary{}},
		{"date", Date{}},
		{"datetime", Date{}},
		{"time", Date{}},
		{"timestamp", Date{}},
		{"json", Object{}},
		{"hash", Object{}},
		{"array", Array{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ForType(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ForType("uuid")
	assert.Error(t, err)
}

func TestBoolean(t *testing.T) {
	b := Boolean{}
	assert.Equal(t, Schema{Kind: "boolean", Nullable: true}, b.Schema())
	assert.Equal(t, "boolean?", b.Schema().String())

	tests := []struct {
		in   interface{}
		want bool
	}{
		{nil, false},
		{true, true},
		{false, false},
		{"True", true},
		{"false", false},
		{"", false},
		{"0", false},
		{"anything", true},
		{1, true},
		{0, false},
		{int64(-3), true},
		{0.0, false},
		{2.5, true},
	}

	for _, tt := range tests {
		got, err := b.Normalize(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "normalize %v", tt.in)

		got, err = b.Serialize(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "serialize %v", tt.in)

		assert.Equal(t, tt.want, b.Objectize(tt.in), "objectize %v", tt.in)
	}

	_, err := b.Normalize(struct{}{})
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestNumber(t *testing.T) {
	n := Number{}

	got, err := n.Normalize(1000)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, got)

	got, err = n.Normalize("12.5")
	require.NoError(t, err)
	assert.Equal(t, 12.5, got)

	got, err = n.Normalize(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = n.Normalize("abc")
	assert.True(t, errors.Is(err, ErrInvalidValue))
	assert.Nil(t, n.Objectize("abc"))
}

func TestInteger(t *testing.T) {
	i := Integer{}

	got, err := i.Normalize(7.9)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	got, err = i.Serialize("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)

	_, err = i.Normalize(true)
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestInteger_BeyondFloatPrecision(t *testing.T) {
	i := Integer{}

	got, err := i.Normalize(int64(9007199254740993))
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), got)

	got, err = i.Normalize(json.Number("9007199254740993"))
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), got)

	got, err = i.Normalize("9007199254740993")
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), got)

	got, err = i.Normalize(uint64(math.MaxInt64))
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)

	_, err = i.Normalize(uint64(1 << 63))
	assert.True(t, errors.Is(err, ErrInvalidValue))

	_, err = i.Normalize(1e19)
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestString(t *testing.T) {
	s := String{}

	got, err := s.Normalize(12)
	require.NoError(t, err)
	assert.Equal(t, "12", got)

	got, err = s.Normalize([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", got)

	got, err = s.Normalize(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPrimaryKey(t *testing.T) {
	p := PrimaryKey{}

	got, err := p.Normalize("abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	got, err = p.Normalize(float64(17))
	require.NoError(t, err)
	assert.Equal(t, int64(17), got)

	got, err = p.Normalize(5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)

	got, err = p.Normalize(uint64(1 << 63))
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<63), got)

	got, err = p.Normalize(json.Number("9223372036854775808"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<63), got)

	got, err = p.Normalize(json.Number("9007199254740993"))
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), got)
}

func TestBinary(t *testing.T) {
	b := Binary{}

	stored, err := b.Serialize([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", stored)

	got, err := b.Normalize(stored)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)

	_, err = b.Normalize("%%%")
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestDate(t *testing.T) {
	d := Date{}
	when := time.Date(2020, 7, 7, 13, 33, 43, 160*int(time.Millisecond), time.UTC)

	got, err := d.Normalize("2020-07-07T13:33:43.160Z")
	require.NoError(t, err)
	assert.True(t, when.Equal(got.(time.Time)))

	stored, err := d.Serialize(when)
	require.NoError(t, err)
	assert.Equal(t, "2020-07-07T13:33:43.160Z", stored)

	assert.Equal(t, "2020-07-07T13:33:43.160Z", d.Objectize(when.In(time.FixedZone("X", 3600))))

	got, err = d.Normalize(when.UnixMilli())
	require.NoError(t, err)
	assert.True(t, when.Equal(got.(time.Time)))

	got, err = d.Normalize("2020-07-07")
	require.NoError(t, err)
	assert.Equal(t, 7, got.(time.Time).Day())

	got, err = d.Normalize("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = d.Normalize("yesterday")
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestObject(t *testing.T) {
	o := Object{}
	when := time.Date(2020, 7, 7, 13, 33, 43, 0, time.UTC)

	got, err := o.Normalize(nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{}, got)
	assert.Equal(t, map[string]interface{}{}, o.Objectize(nil))

	got, err = o.Normalize(map[string]interface{}{
		"at":    "2020-07-07T13:33:43.000Z",
		"tags":  []interface{}{"a", "b"},
		"inner": map[string]interface{}{"at": "2020-07-07T13:33:43.000Z", "n": 1.0},
	})
	require.NoError(t, err)
	m := got.(map[string]interface{})
	assert.True(t, when.Equal(m["at"].(time.Time)))
	assert.Equal(t, []interface{}{"a", "b"}, m["tags"])
	assert.True(t, when.Equal(m["inner"].(map[string]interface{})["at"].(time.Time)))

	decoded, err := o.Normalize(map[string]interface{}{"n": json.Number("2.5")})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"n": 2.5}, decoded)

	stored, err := o.Serialize(m)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"at":    "2020-07-07T13:33:43.000Z",
		"tags":  []interface{}{"a", "b"},
		"inner": map[string]interface{}{"at": "2020-07-07T13:33:43.000Z", "n": 1.0},
	}, stored)

	got, err = o.Normalize(map[string]string{"k": "v"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"k": "v"}, got)

	_, err = o.Normalize(42)
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestArray(t *testing.T) {
	a := Array{}

	got, err := a.Normalize(nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, got)

	got, err = a.Normalize([]string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"x", "y"}, got)

	_, err = a.Normalize("x")
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		typ string
		in  interface{}
	}{
		{"date", "2020-07-07T13:33:43.160Z"},
		{"boolean", true},
		{"boolean", false},
		{"number", 12.25},
		{"integer", int64(9)},
		{"string", "hello"},
		{"hash", map[string]interface{}{"at": "2021-01-02T03:04:05.000Z", "n": 1.0}},
		{"array", []interface{}{"a", 1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			tr, err := ForType(tt.typ)
			require.NoError(t, err)
			normalized, err := tr.Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.in, tr.Objectize(normalized))
		})
	}
}

func TestEqual(t *testing.T) {
	a := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.In(time.FixedZone("X", 3600))

	assert.True(t, Equal(a, b))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, 0))
	assert.False(t, Equal(a, "2020-01-01"))
	assert.True(t, Equal([]interface{}{1}, []interface{}{1}))
}
