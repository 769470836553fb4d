package anybase_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svckit/svckit/anybase"
)

func TestEncode(t *testing.T) {
	cases := []struct {
		name   string
		number uint64
		base   int
		want   string
	}{
		{"zero", 0, 62, "0"},
		{"single digit", 35, 36, "z"},
		{"base 2", 10, 2, "1010"},
		{"base 16", 255, 16, "ff"},
		{"base 62", 3844, 62, "100"},
		{"max uint64 base 62", math.MaxUint64, 62, "lYGhA16ahyf"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := anybase.Encode(tc.number, tc.base)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, base := range []int{2, 8, 16, 36, 62} {
		for _, number := range []uint64{0, 1, 61, 62, 12345, 1 << 40, math.MaxUint64} {
			encoded, err := anybase.Encode(number, base)
			require.NoError(t, err)
			decoded, err := anybase.Decode(encoded, base)
			require.NoError(t, err)
			assert.Equal(t, number, decoded, "base %d number %d", base, number)
		}
	}
}

func TestBaseOutOfRange(t *testing.T) {
	for _, base := range []int{0, 1, 63, -5} {
		_, err := anybase.Encode(1, base)
		assert.ErrorIs(t, err, anybase.ErrBase)
		_, err = anybase.Decode("1", base)
		assert.ErrorIs(t, err, anybase.ErrBase)
	}
}

func TestDecodeInvalidChar(t *testing.T) {
	_, err := anybase.Decode("12x", 10)
	assert.ErrorIs(t, err, anybase.ErrInvalidChar)

	// Uppercase digits are out of range for bases at or below 36.
	_, err = anybase.Decode("FF", 16)
	assert.ErrorIs(t, err, anybase.ErrInvalidChar)
}

func TestCustomAlphabet(t *testing.T) {
	const hex = "0123456789ABCDEF"
	got, err := anybase.EncodeWith(48879, 16, hex)
	require.NoError(t, err)
	assert.Equal(t, "BEEF", got)

	decoded, err := anybase.DecodeWith("BEEF", 16, hex)
	require.NoError(t, err)
	assert.Equal(t, uint64(48879), decoded)
}
