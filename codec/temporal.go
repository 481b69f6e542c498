package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// temporalCodec handles DATE/DATETIME/TIMESTAMP/TIME in both the
// binary and text protocol forms (§4.7), honoring the configured
// zero-date policy. TIME decodes to a signed time.Duration that keeps
// the full hour count (days folded in); it is not reduced onto a
// 24-hour clock.
//
// No teacher file implements temporal decoding (packet_util.go's
// marshalTime only covers encoding a handful of driver.Value shapes);
// the wire layouts here follow the documented binary protocol row
// format referenced by §4.7 directly.
type temporalCodec struct{}

func (temporalCodec) CanEncode(v interface{}) bool {
	switch v.(type) {
	case time.Time, time.Duration:
		return true
	default:
		return false
	}
}

func (temporalCodec) Encode(v interface{}, _ Options) (byte, bool, []byte, error) {
	switch t := v.(type) {
	case time.Time:
		return colTypeDateTime, false, encodeDateTimeBinary(t), nil
	case time.Duration:
		return colTypeTime, false, encodeTimeBinary(t), nil
	default:
		return 0, false, nil, fmt.Errorf("codec: not a temporal value: %T", v)
	}
}

func (temporalCodec) CanDecode(colType byte) bool {
	switch colType {
	case colTypeDate, colTypeDateTime, colTypeTimestamp, colTypeTime, colTypeNewDate:
		return true
	default:
		return false
	}
}

func (temporalCodec) Decode(raw []byte, colType byte, _ bool, binaryProto bool, opts Options) (interface{}, error) {
	if colType == colTypeTime {
		if binaryProto {
			return decodeTimeBinary(raw)
		}
		return decodeTimeText(string(raw))
	}
	if binaryProto {
		return decodeDateTimeBinary(raw, opts)
	}
	return decodeDateTimeText(string(raw), opts)
}

func loc(opts Options) *time.Location {
	if opts.Location != nil {
		return opts.Location
	}
	return time.UTC
}

// zeroDateResult applies §4.7's zero-date policy once a wire value has
// been found to be the all-zero date.
func zeroDateResult(opts Options) (interface{}, error) {
	switch opts.ZeroDate {
	case ZeroDateUseNull:
		return nil, nil
	case ZeroDateUseRound:
		return time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), nil
	case ZeroDateException:
		return nil, fmt.Errorf("codec: zero date value with zeroDate=EXCEPTION")
	default:
		return nil, nil
	}
}

func decodeDateTimeBinary(raw []byte, opts Options) (interface{}, error) {
	if len(raw) == 0 {
		return zeroDateResult(opts)
	}
	year := int(raw[0]) | int(raw[1])<<8
	month := int(raw[2])
	day := int(raw[3])
	if year == 0 && month == 0 && day == 0 {
		return zeroDateResult(opts)
	}
	var hour, min, sec, micros int
	if len(raw) >= 7 {
		hour, min, sec = int(raw[4]), int(raw[5]), int(raw[6])
	}
	if len(raw) >= 11 {
		micros = int(raw[7]) | int(raw[8])<<8 | int(raw[9])<<16 | int(raw[10])<<24
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, micros*1000, loc(opts)), nil
}

func encodeDateTimeBinary(t time.Time) []byte {
	if t.IsZero() {
		return nil
	}
	micros := t.Nanosecond() / 1000
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && micros == 0 {
		return []byte{byte(t.Year()), byte(t.Year() >> 8), byte(t.Month()), byte(t.Day())}
	}
	b := []byte{
		byte(t.Year()), byte(t.Year() >> 8), byte(t.Month()), byte(t.Day()),
		byte(t.Hour()), byte(t.Minute()), byte(t.Second()),
	}
	if micros != 0 {
		b = append(b, byte(micros), byte(micros>>8), byte(micros>>16), byte(micros>>24))
	}
	return b
}

// decodeTimeBinary reads the 0/8/12-byte TIME form: sign byte, LE u32
// days, hour, minute, second, optional LE u32 microseconds. Days are
// folded into the hour count and a set sign byte negates the result;
// the duration is not reduced modulo 24.
func decodeTimeBinary(raw []byte) (interface{}, error) {
	if len(raw) == 0 {
		return time.Duration(0), nil
	}
	if len(raw) < 8 {
		return nil, fmt.Errorf("codec: TIME binary payload too short (%d bytes)", len(raw))
	}
	negative := raw[0] != 0
	days := int64(raw[1]) | int64(raw[2])<<8 | int64(raw[3])<<16 | int64(raw[4])<<24
	hour := int64(raw[5])
	minute := int64(raw[6])
	second := int64(raw[7])
	var micros int64
	if len(raw) >= 12 {
		micros = int64(raw[8]) | int64(raw[9])<<8 | int64(raw[10])<<16 | int64(raw[11])<<24
	}
	total := time.Duration(days)*24*time.Hour +
		time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second +
		time.Duration(micros)*time.Microsecond
	if negative {
		total = -total
	}
	return total, nil
}

func encodeTimeBinary(d time.Duration) []byte {
	if d == 0 {
		return nil
	}
	negative := d < 0
	if negative {
		d = -d
	}
	days := int32(d / (24 * time.Hour))
	rem := d % (24 * time.Hour)
	hour := int(rem / time.Hour)
	rem %= time.Hour
	minute := int(rem / time.Minute)
	rem %= time.Minute
	second := int(rem / time.Second)
	micros := int32((rem % time.Second) / time.Microsecond)

	sign := byte(0)
	if negative {
		sign = 1
	}
	b := []byte{sign, byte(days), byte(days >> 8), byte(days >> 16), byte(days >> 24), byte(hour), byte(minute), byte(second)}
	if micros != 0 {
		b = append(b, byte(micros), byte(micros>>8), byte(micros>>16), byte(micros>>24))
	}
	return b
}

func decodeDateTimeText(s string, opts Options) (interface{}, error) {
	if isZeroDateText(s) {
		return zeroDateResult(opts)
	}
	layouts := []string{"2006-01-02 15:04:05.999999", "2006-01-02 15:04:05", "2006-01-02"}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc(opts)); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("codec: cannot parse temporal text value %q", s)
}

func isZeroDateText(s string) bool {
	t := strings.TrimLeft(s, "0-: .")
	return t == ""
}

func decodeTimeText(s string) (interface{}, error) {
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("codec: malformed TIME text value %q", s)
	}
	hour, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, err
	}
	minute, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, err
	}
	secPart := parts[2]
	var second, micros int64
	if dot := strings.IndexByte(secPart, '.'); dot >= 0 {
		second, err = strconv.ParseInt(secPart[:dot], 10, 64)
		if err != nil {
			return nil, err
		}
		frac := secPart[dot+1:]
		for len(frac) < 6 {
			frac += "0"
		}
		micros, err = strconv.ParseInt(frac[:6], 10, 64)
		if err != nil {
			return nil, err
		}
	} else {
		second, err = strconv.ParseInt(secPart, 10, 64)
		if err != nil {
			return nil, err
		}
	}
	total := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second + time.Duration(micros)*time.Microsecond
	if negative {
		total = -total
	}
	return total, nil
}
