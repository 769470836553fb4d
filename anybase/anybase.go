// Package anybase converts unsigned integers to and from compact
// string form in an arbitrary base, using a URL-safe alphabet of up to
// 62 characters.
package anybase

import (
	"errors"
	"fmt"
	"strings"
)

// Alphabet is the default encoding alphabet: digits, then lowercase,
// then uppercase. All characters are URL and filename safe.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	ErrBase        = errors.New("anybase: base out of range")
	ErrInvalidChar = errors.New("anybase: invalid character")
)

// Encode converts number to a string in the given base using the
// default alphabet. Base must be between 2 and len(Alphabet).
func Encode(number uint64, base int) (string, error) {
	return EncodeWith(number, base, Alphabet)
}

// EncodeWith is Encode with a caller-supplied alphabet.
func EncodeWith(number uint64, base int, alphabet string) (string, error) {
	if base < 2 || base > len(alphabet) {
		return "", fmt.Errorf("%w: %d", ErrBase, base)
	}
	if number == 0 {
		return string(alphabet[0]), nil
	}
	var out []byte
	for number > 0 {
		out = append(out, alphabet[number%uint64(base)])
		number /= uint64(base)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out), nil
}

// Decode converts a string produced by Encode back to an integer.
func Decode(value string, base int) (uint64, error) {
	return DecodeWith(value, base, Alphabet)
}

// DecodeWith is Decode with a caller-supplied alphabet.
func DecodeWith(value string, base int, alphabet string) (uint64, error) {
	if base < 2 || base > len(alphabet) {
		return 0, fmt.Errorf("%w: %d", ErrBase, base)
	}
	var number uint64
	for _, c := range []byte(value) {
		digit := strings.IndexByte(alphabet[:base], c)
		if digit < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidChar, c)
		}
		number = number*uint64(base) + uint64(digit)
	}
	return number, nil
}
