// Package number provides convenience functions for encoding and
// decoding numbers with SI prefixes and time suffixes, plus a
// time-based unique id generator.
package number

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"
)

// ErrCannotDecode is returned by Decode for input that is not a number
// with an optional SI prefix or time suffix.
var ErrCannotDecode = errors.New("number: cannot decode value")

var (
	siLarge = []string{"", "k", "M", "G", "T", "P", "E", "Z", "Y"}
	siSmall = []string{"", "m", "u", "n", "p", "f", "a", "z", "y"}

	siExponent = buildExponents()
	decodeRE   = regexp.MustCompile(`^(-)?([0-9]+)(\.[0-9]+)?([kMGTPEZYmunpfazy])?$`)

	timeSuffixes = map[byte]float64{
		's': 1,
		'm': 60,
		'h': 3600,
		'd': 86400,
		'w': 604800,
		'y': 31536000,
	}
)

func buildExponents() map[string]int {
	exponents := make(map[string]int, len(siLarge)+len(siSmall))
	for i, prefix := range siLarge {
		exponents[prefix] = i
	}
	for i, prefix := range siSmall {
		if i > 0 {
			exponents[prefix] = -i
		}
	}
	return exponents
}

// Option adjusts encoding and decoding behavior.
type Option func(*config)

type config struct {
	siPrefix     bool
	digits       int
	factor       float64
	timeSuffixes bool
	absolute     bool
	now          time.Time
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		siPrefix: true,
		digits:   3,
		factor:   1000,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithoutSIPrefix formats the raw value with significant digits only.
func WithoutSIPrefix() Option {
	return func(cfg *config) {
		cfg.siPrefix = false
	}
}

// WithDigits sets the number of significant digits (default 3).
func WithDigits(digits int) Option {
	return func(cfg *config) {
		if digits > 0 {
			cfg.digits = digits
		}
	}
}

// WithFactor sets the scaling factor between prefixes (default 1000;
// use 1024 for binary sizes).
func WithFactor(factor float64) Option {
	return func(cfg *config) {
		if factor > 1 {
			cfg.factor = factor
		}
	}
}

// WithTimeSuffixes makes Decode treat a trailing s/m/h/d/w/y as a time
// unit, returning seconds.
func WithTimeSuffixes() Option {
	return func(cfg *config) {
		cfg.timeSuffixes = true
	}
}

// WithAbsoluteTime makes a time-suffixed Decode result absolute by
// adding it to now, rather than returning a relative span of seconds.
// Implies WithTimeSuffixes.
func WithAbsoluteTime(now time.Time) Option {
	return func(cfg *config) {
		cfg.timeSuffixes = true
		cfg.absolute = true
		cfg.now = now
	}
}

// Encode formats value to a number of significant digits, adding an SI
// prefix if needed.
//
//	Encode(1234567890)            // "1.24G"
//	Encode(0.5)                   // "500m"
//	Encode(1234.5, WithoutSIPrefix()) // "1234"
func Encode(value float64, opts ...Option) string {
	cfg := newConfig(opts...)
	prefix := ""
	if cfg.siPrefix {
		index := 0
		switch {
		case value > 1:
			for value >= cfg.factor && index < len(siLarge)-1 {
				value /= cfg.factor
				index++
			}
			prefix = siLarge[index]
		case value > 0:
			for round(value, cfg.digits) < 1 && index < len(siSmall)-1 {
				value *= cfg.factor
				index++
			}
			prefix = siSmall[index]
		}
	}
	for digit := cfg.digits; digit > 0; digit-- {
		value = round(value, digit)
		if value < math.Pow(10, float64(cfg.digits-digit)) && value != round(value, digit-1) {
			return fmt.Sprintf("%.*f%s", digit, value, prefix)
		}
	}
	value = round(value, 0)
	if value == 0 {
		return "0"
	}
	return fmt.Sprintf("%d%s", int64(value), prefix)
}

func round(value float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))
	return math.Round(value*pow) / pow
}

// Decode parses an SI-prefix encoded value. With WithTimeSuffixes a
// trailing time unit converts to seconds, and with WithAbsoluteTime the
// result is anchored to a wall-clock time.
//
//	Decode("1.5k")                     // 1500
//	Decode("5m")                       // 0.005
//	Decode("5m", WithTimeSuffixes())   // 300
func Decode(value string, opts ...Option) (float64, error) {
	cfg := newConfig(opts...)
	multiplier := 1.0
	if cfg.timeSuffixes && len(value) > 0 {
		if m, ok := timeSuffixes[value[len(value)-1]]; ok {
			multiplier = m
			value = value[:len(value)-1]
		}
	}
	match := decodeRE.FindStringSubmatch(value)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrCannotDecode, value)
	}
	if match[4] != "" {
		multiplier *= math.Pow(cfg.factor, float64(siExponent[match[4]]))
	}
	parsed, err := strconv.ParseFloat(match[2]+match[3], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrCannotDecode, value)
	}
	if match[1] == "-" {
		parsed = -parsed
	}
	parsed *= multiplier
	if cfg.absolute {
		now := cfg.now
		if now.IsZero() {
			now = time.Now()
		}
		parsed += float64(now.UnixNano()) / float64(time.Second)
	}
	return parsed, nil
}

// uniqueSeq disambiguates ids minted within the same microsecond. It
// starts at a random offset so ids from different processes do not
// share a predictable low-bit sequence.
var uniqueSeq = func() *atomic.Uint64 {
	var seq atomic.Uint64
	seq.Store(rand.Uint64())
	return &seq
}()

// Unique64 generates a unique time-based 64 bit integer id: seconds in
// the high 32 bits, microseconds next, and a random-start sequence in
// the low 12 bits. Ids stay distinct up to 4096 calls per microsecond.
func Unique64() uint64 {
	now := time.Now()
	seconds := uint64(now.Unix())
	micros := uint64(now.Nanosecond() / 1000)
	return seconds<<32 + micros<<12 + uniqueSeq.Add(1)&0xfff
}

// FormatBytes is a shorthand for binary-factor encoding of sizes.
func FormatBytes(n uint64) string {
	return Encode(float64(n), WithFactor(1024)) + "B"
}
