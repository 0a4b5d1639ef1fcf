package wkt

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/anirudhraja/protocore/descriptor"
	"github.com/anirudhraja/protocore/message"
)

// Range of a valid Timestamp: 0001-01-01T00:00:00Z to
// 9999-12-31T23:59:59.999999999Z.
const (
	MinTimestampSeconds int64 = -62_135_596_800
	MaxTimestampSeconds int64 = 253_402_300_799
)

// Timestamp is a point in time as seconds and nanoseconds since the Unix
// epoch. In a normalized Timestamp Nanos is in [0, 1e9).
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// NormalizeTimestamp folds nanos of a second or more into seconds, then
// borrows a second if nanos is negative. It fails with ErrOverflow if
// seconds overflows and with ErrOutOfRange if the result falls outside years
// 1 to 9999.
func NormalizeTimestamp(seconds, nanos int64) (Timestamp, error) {
	if nanos <= -nanosPerSecond || nanos >= nanosPerSecond {
		s, ok := addInt64(seconds, nanos/nanosPerSecond)
		if !ok {
			return Timestamp{}, fmt.Errorf("%w: timestamp of %d seconds plus %d nanoseconds", ErrOverflow, seconds, nanos)
		}
		seconds = s
		nanos %= nanosPerSecond
	}
	if nanos < 0 {
		if seconds == math.MinInt64 {
			return Timestamp{}, fmt.Errorf("%w: timestamp of %d seconds minus one", ErrOverflow, seconds)
		}
		seconds--
		nanos += nanosPerSecond
	}
	t := Timestamp{Seconds: seconds, Nanos: int32(nanos)}
	if !t.IsValid() {
		return Timestamp{}, fmt.Errorf("%w: timestamp of %d seconds", ErrOutOfRange, seconds)
	}
	return t, nil
}

// IsValid reports whether t is normalized and within the representable
// range.
func (t Timestamp) IsValid() bool {
	return t.Seconds >= MinTimestampSeconds && t.Seconds <= MaxTimestampSeconds &&
		t.Nanos >= 0 && t.Nanos < nanosPerSecond
}

// Sub returns the Duration t-u.
func (t Timestamp) Sub(u Timestamp) (Duration, error) {
	s, ok := subInt64(t.Seconds, u.Seconds)
	if !ok {
		return Duration{}, fmt.Errorf("%w: %d - %d seconds", ErrOverflow, t.Seconds, u.Seconds)
	}
	return NormalizeDuration(s, int64(t.Nanos)-int64(u.Nanos))
}

// Add returns t+d.
func (t Timestamp) Add(d Duration) (Timestamp, error) {
	s, ok := addInt64(t.Seconds, d.Seconds)
	if !ok {
		return Timestamp{}, fmt.Errorf("%w: %d + %d seconds", ErrOverflow, t.Seconds, d.Seconds)
	}
	return NormalizeTimestamp(s, int64(t.Nanos)+int64(d.Nanos))
}

// SubDuration returns t-d.
func (t Timestamp) SubDuration(d Duration) (Timestamp, error) {
	s, ok := subInt64(t.Seconds, d.Seconds)
	if !ok {
		return Timestamp{}, fmt.Errorf("%w: %d - %d seconds", ErrOverflow, t.Seconds, d.Seconds)
	}
	return NormalizeTimestamp(s, int64(t.Nanos)-int64(d.Nanos))
}

// AsTime converts t to a UTC time.Time. It fails with ErrOutOfRange if t is
// not valid.
func (t Timestamp) AsTime() (time.Time, error) {
	if !t.IsValid() {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp %+v", ErrOutOfRange, t)
	}
	return time.Unix(t.Seconds, int64(t.Nanos)).UTC(), nil
}

// TimestampOf converts a time.Time. The result may be invalid for times
// outside years 1 to 9999.
func TimestampOf(tm time.Time) Timestamp {
	return Timestamp{Seconds: tm.Unix(), Nanos: int32(tm.Nanosecond())}
}

// ToProto converts t to the generated Timestamp type.
func (t Timestamp) ToProto() *timestamppb.Timestamp {
	return &timestamppb.Timestamp{Seconds: t.Seconds, Nanos: t.Nanos}
}

// TimestampFromProto converts the generated Timestamp type. A nil input is
// the Unix epoch.
func TimestampFromProto(p *timestamppb.Timestamp) Timestamp {
	return Timestamp{Seconds: p.GetSeconds(), Nanos: p.GetNanos()}
}

// ToMessage returns t as a dynamic message of type desc, which must be
// google.protobuf.Timestamp.
func (t Timestamp) ToMessage(desc *descriptor.Message) (*message.Message, error) {
	return secondsNanos(desc, TimestampFullName, t.Seconds, t.Nanos)
}

// TimestampFromMessage reads a dynamic google.protobuf.Timestamp message.
func TimestampFromMessage(m *message.Message) (Timestamp, error) {
	s, n, err := readSecondsNanos(m, TimestampFullName)
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Seconds: s, Nanos: n}, nil
}
