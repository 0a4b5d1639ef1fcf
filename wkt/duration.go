package wkt

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/message"
)

// Range of a valid Duration, about ±10000 years.
const (
	MaxDurationSeconds int64 = 315_576_000_000
	MinDurationSeconds int64 = -MaxDurationSeconds
)

// Duration is a signed span of time. In a normalized Duration Seconds and
// Nanos never have opposite signs and |Nanos| < 1e9.
type Duration struct {
	Seconds int64
	Nanos   int32
}

// NormalizeDuration folds nanos of a second or more into seconds, then
// moves one second between the parts if their signs disagree. It fails with
// ErrOverflow if seconds overflows and with ErrOutOfRange if the result lies
// outside ±MaxDurationSeconds.
func NormalizeDuration(seconds, nanos int64) (Duration, error) {
	if nanos <= -nanosPerSecond || nanos >= nanosPerSecond {
		s, ok := addInt64(seconds, nanos/nanosPerSecond)
		if !ok {
			return Duration{}, fmt.Errorf("%w: duration of %d seconds plus %d nanoseconds", ErrOverflow, seconds, nanos)
		}
		seconds = s
		nanos %= nanosPerSecond
	}
	switch {
	case seconds < 0 && nanos > 0:
		seconds++
		nanos -= nanosPerSecond
	case seconds > 0 && nanos < 0:
		seconds--
		nanos += nanosPerSecond
	}
	d := Duration{Seconds: seconds, Nanos: int32(nanos)}
	if !d.IsValid() {
		return Duration{}, fmt.Errorf("%w: duration of %d seconds", ErrOutOfRange, seconds)
	}
	return d, nil
}

// IsValid reports whether d is normalized and within the representable
// range.
func (d Duration) IsValid() bool {
	if d.Seconds < MinDurationSeconds || d.Seconds > MaxDurationSeconds {
		return false
	}
	if d.Nanos <= -nanosPerSecond || d.Nanos >= nanosPerSecond {
		return false
	}
	return (d.Seconds >= 0 || d.Nanos <= 0) && (d.Seconds <= 0 || d.Nanos >= 0)
}

// Add returns d+o.
func (d Duration) Add(o Duration) (Duration, error) {
	s, ok := addInt64(d.Seconds, o.Seconds)
	if !ok {
		return Duration{}, fmt.Errorf("%w: %d + %d seconds", ErrOverflow, d.Seconds, o.Seconds)
	}
	return NormalizeDuration(s, int64(d.Nanos)+int64(o.Nanos))
}

// Sub returns d-o.
func (d Duration) Sub(o Duration) (Duration, error) {
	s, ok := subInt64(d.Seconds, o.Seconds)
	if !ok {
		return Duration{}, fmt.Errorf("%w: %d - %d seconds", ErrOverflow, d.Seconds, o.Seconds)
	}
	return NormalizeDuration(s, int64(d.Nanos)-int64(o.Nanos))
}

// Neg returns -d.
func (d Duration) Neg() (Duration, error) {
	if d.Seconds == math.MinInt64 {
		return Duration{}, fmt.Errorf("%w: negating %d seconds", ErrOverflow, d.Seconds)
	}
	return NormalizeDuration(-d.Seconds, -int64(d.Nanos))
}

// AsDuration converts d to a time.Duration. It fails with ErrOutOfRange if
// d is invalid or does not fit, time.Duration covering about ±292 years.
func (d Duration) AsDuration() (time.Duration, error) {
	if !d.IsValid() {
		return 0, fmt.Errorf("%w: invalid duration %+v", ErrOutOfRange, d)
	}
	const maxSeconds = math.MaxInt64 / int64(time.Second)
	if d.Seconds <= maxSeconds && d.Seconds >= -maxSeconds {
		if ns, ok := addInt64(d.Seconds*int64(time.Second), int64(d.Nanos)); ok {
			return time.Duration(ns), nil
		}
	}
	return 0, fmt.Errorf("%w: %+v does not fit time.Duration", ErrOutOfRange, d)
}

// DurationOf converts a time.Duration. Every time.Duration is representable.
func DurationOf(td time.Duration) Duration {
	return Duration{
		Seconds: int64(td / time.Second),
		Nanos:   int32(td % time.Second),
	}
}

// ToProto converts d to the generated Duration type.
func (d Duration) ToProto() *durationpb.Duration {
	return &durationpb.Duration{Seconds: d.Seconds, Nanos: d.Nanos}
}

// DurationFromProto converts the generated Duration type. A nil input is
// the zero Duration.
func DurationFromProto(p *durationpb.Duration) Duration {
	return Duration{Seconds: p.GetSeconds(), Nanos: p.GetNanos()}
}

// ToMessage returns d as a dynamic message of type desc, which must be
// google.protobuf.Duration.
func (d Duration) ToMessage(desc *descriptor.Message) (*message.Message, error) {
	return secondsNanos(desc, DurationFullName, d.Seconds, d.Nanos)
}

// DurationFromMessage reads a dynamic google.protobuf.Duration message. The
// result is returned as stored; check IsValid before relying on it.
func DurationFromMessage(m *message.Message) (Duration, error) {
	s, n, err := readSecondsNanos(m, DurationFullName)
	if err != nil {
		return Duration{}, err
	}
	return Duration{Seconds: s, Nanos: n}, nil
}
