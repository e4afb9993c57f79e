package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// lastScheduleTime is the latest accepted time of day.
const lastScheduleTime = 23*time.Hour + 59*time.Minute + 59*time.Second

// ScheduleTime is a time of day accepted as HH:MM, HH:MM:SS or HH:MM:SS.fff.
type ScheduleTime struct {
	offset time.Duration
}

// NewScheduleTime builds a ScheduleTime from clock components.
func NewScheduleTime(hour, minute, second int) (ScheduleTime, error) {
	if hour < 0 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return ScheduleTime{}, fmt.Errorf("%w: schedule %02d:%02d:%02d is not a time of day", ErrInvalid, hour, minute, second)
	}
	d := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second
	if d > lastScheduleTime {
		return ScheduleTime{}, fmt.Errorf("%w: schedule must not be later than 23:59:59", ErrInvalid)
	}
	return ScheduleTime{offset: d}, nil
}

// ParseScheduleTime parses HH:MM, HH:MM:SS or HH:MM:SS.fff.
func ParseScheduleTime(value string) (ScheduleTime, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ScheduleTime{}, fmt.Errorf("%w: schedule %q must be HH:MM or HH:MM:SS", ErrInvalid, value)
	}
	var millis int
	if len(parts) == 3 {
		if sec, frac, ok := strings.Cut(parts[2], "."); ok {
			if len(frac) == 0 || len(frac) > 3 {
				return ScheduleTime{}, fmt.Errorf("%w: schedule %q has an invalid fraction", ErrInvalid, value)
			}
			n, err := strconv.Atoi(frac + strings.Repeat("0", 3-len(frac)))
			if err != nil || n < 0 {
				return ScheduleTime{}, fmt.Errorf("%w: schedule %q has an invalid fraction", ErrInvalid, value)
			}
			millis = n
			parts[2] = sec
		}
	}
	fields := make([]int, 3)
	for i, part := range parts {
		if len(part) == 0 || len(part) > 2 {
			return ScheduleTime{}, fmt.Errorf("%w: schedule %q must be HH:MM or HH:MM:SS", ErrInvalid, value)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return ScheduleTime{}, fmt.Errorf("%w: schedule %q: %v", ErrInvalid, value, err)
		}
		fields[i] = n
	}
	st, err := NewScheduleTime(fields[0], fields[1], fields[2])
	if err != nil {
		return ScheduleTime{}, err
	}
	st.offset += time.Duration(millis) * time.Millisecond
	if st.offset > lastScheduleTime {
		return ScheduleTime{}, fmt.Errorf("%w: schedule must not be later than 23:59:59", ErrInvalid)
	}
	return st, nil
}

// MustParseScheduleTime is ParseScheduleTime for constants.
func MustParseScheduleTime(value string) ScheduleTime {
	st, err := ParseScheduleTime(value)
	if err != nil {
		panic(err)
	}
	return st
}

func (s ScheduleTime) Hour() int   { return int(s.offset / time.Hour) }
func (s ScheduleTime) Minute() int { return int(s.offset % time.Hour / time.Minute) }
func (s ScheduleTime) Second() int { return int(s.offset % time.Minute / time.Second) }

// Offset returns the distance from midnight.
func (s ScheduleTime) Offset() time.Duration { return s.offset }

// Next returns the first occurrence of s strictly after now, in now's location.
func (s ScheduleTime) Next(now time.Time) time.Time {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	next := midnight.Add(s.offset)
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location()).Add(s.offset)
	}
	return next
}

func (s ScheduleTime) String() string {
	out := fmt.Sprintf("%02d:%02d", s.Hour(), s.Minute())
	if rest := s.offset % time.Minute; rest != 0 {
		out += fmt.Sprintf(":%02d", s.Second())
		if ms := int(rest % time.Second / time.Millisecond); ms != 0 {
			out += fmt.Sprintf(".%03d", ms)
		}
	}
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (s ScheduleTime) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ScheduleTime) UnmarshalText(text []byte) error {
	parsed, err := ParseScheduleTime(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
