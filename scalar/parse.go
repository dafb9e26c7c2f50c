package scalar

import (
	"math"
	"strconv"
	"strings"
)

func posInf() float64 { return math.Inf(1) }
func negInf() float64 { return math.Inf(-1) }
func nan() float64    { return math.NaN() }

// Flags reports the out-of-band numeric-parse signals required by spec.md
// §4.1: integer parsing reports overflow/underflow explicitly (the returned
// value is unspecified but the flag is set); float parsing saturates to
// ±inf / 0 with the same flags.
type Flags struct {
	Overflow  bool
	Underflow bool
}

// digitValue returns the value of a digit character in the given base, or
// -1 if it isn't a digit of that base.
func digitValue(c byte, base int) int {
	var v int
	switch {
	case c >= '0' && c <= '9':
		v = int(c - '0')
	case c >= 'a' && c <= 'f':
		v = int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		v = int(c-'A') + 10
	default:
		return -1
	}
	if v >= base {
		return -1
	}
	return v
}

// scanDigitRun scans a run of base-N digits (optionally separated by single,
// non-leading, non-trailing, non-adjacent '_' characters) starting at s[i].
// It returns the digits with separators stripped, the index just past the
// run, and whether at least one digit was found with no malformed
// separator.
func scanDigitRun(s string, i, base int) (clean string, end int, ok bool) {
	var b strings.Builder
	lastWasDigit := false
	sawDigit := false
	j := i
	for j < len(s) {
		c := s[j]
		if c == '_' {
			if !lastWasDigit {
				// leading or adjacent-to-separator underscore
				break
			}
			// Must be followed by another digit; otherwise this underscore
			// is trailing and not part of the literal.
			if j+1 >= len(s) || digitValue(s[j+1], base) < 0 {
				break
			}
			lastWasDigit = false
			j++
			continue
		}
		if dv := digitValue(c, base); dv >= 0 {
			b.WriteByte(c)
			sawDigit = true
			lastWasDigit = true
			j++
			continue
		}
		break
	}
	if !sawDigit {
		return "", i, false
	}
	return b.String(), j, true
}

// ParseUInt parses an unsigned decimal/0x/0b integer literal (with optional
// '_' digit separators) at the start of s. The returned consumed count
// never includes a trailing 'u' marker, and no parser in this package
// consumes the `<digits>u` literal form.
func ParseUInt(s string) (value uint64, consumed int, flags Flags) {
	if s == "" {
		return 0, 0, Flags{}
	}
	base, start := 10, 0
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base, start = 16, 2
	} else if strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B") {
		base, start = 2, 2
	}
	digits, end, ok := scanDigitRun(s, start, base)
	if !ok {
		return 0, 0, Flags{}
	}
	v, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return 0, end, Flags{Overflow: true}
	}
	return v, end, Flags{}
}

// ParseInt parses an optionally-signed decimal/0x/0b integer literal at the
// start of s, reporting overflow (magnitude too large for a positive int64)
// or underflow (magnitude too large for a negative int64) rather than
// failing outright.
func ParseInt(s string) (value int64, consumed int, flags Flags) {
	if s == "" {
		return 0, 0, Flags{}
	}
	neg := false
	i := 0
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		i = 1
	}
	body := s[i:]
	base, start := 10, 0
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		base, start = 16, 2
	} else if strings.HasPrefix(body, "0b") || strings.HasPrefix(body, "0B") {
		base, start = 2, 2
	}
	digits, end, ok := scanDigitRun(body, start, base)
	if !ok {
		return 0, 0, Flags{}
	}
	consumed = i + end

	u, err := strconv.ParseUint(digits, base, 64)
	if !neg {
		if err != nil || u > uint64(1<<63-1) {
			return 0, consumed, Flags{Overflow: true}
		}
		return int64(u), consumed, Flags{}
	}

	if err != nil || u > uint64(1)<<63 {
		return 0, consumed, Flags{Underflow: true}
	}
	if u == uint64(1)<<63 {
		return int64(-1 << 63), consumed, Flags{}
	}
	return -int64(u), consumed, Flags{}
}

// ParseFloat parses a signed float literal, including the `inf` and `nan`
// keywords, at the start of s. Magnitudes beyond ±max-float64 saturate to
// ±Inf with Overflow set; magnitudes that round to zero from a nonzero
// literal saturate to 0.0 with Underflow set.
func ParseFloat(s string) (value float64, consumed int, flags Flags) {
	if s == "" {
		return 0, 0, Flags{}
	}
	i := 0
	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		i = 1
	}
	if strings.HasPrefix(s[i:], "inf") {
		v := posInf()
		if neg {
			v = negInf()
		}
		return v, i + 3, Flags{}
	}
	if strings.HasPrefix(s[i:], "nan") {
		return nan(), i + 3, Flags{}
	}

	var b strings.Builder
	// integer part
	intDigits, end, okInt := scanDigitRun(s, i, 10)
	if okInt {
		b.WriteString(intDigits)
		i = end
	}
	// A leading "." with no integer part (".5") is still a valid literal.
	if !okInt && (i >= len(s) || s[i] != '.') {
		return 0, 0, Flags{}
	}
	if i < len(s) && s[i] == '.' {
		b.WriteByte('.')
		i++
		fracDigits, fend, okFrac := scanDigitRun(s, i, 10)
		if okFrac {
			b.WriteString(fracDigits)
			i = fend
		} else if !okInt {
			return 0, 0, Flags{}
		}
	}
	if !okInt && b.Len() <= 1 {
		return 0, 0, Flags{}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		expSign := ""
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			expSign = string(s[j])
			j++
		}
		expDigits, eend, okExp := scanDigitRun(s, j, 10)
		if okExp {
			b.WriteByte('e')
			b.WriteString(expSign)
			b.WriteString(expDigits)
			i = eend
		}
	}
	consumed = i
	text := b.String()
	if neg {
		text = "-" + text
	}
	v, err := strconv.ParseFloat(text, 64)
	// strconv reports no error when a nonzero literal rounds to zero, so
	// underflow is detected from a nonzero digit in the mantissa.
	mant := text
	if k := strings.IndexByte(mant, 'e'); k >= 0 {
		mant = mant[:k]
	}
	if err == nil && v == 0 && strings.Trim(mant, "-0.") != "" {
		return 0, consumed, Flags{Underflow: true}
	}
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			if v == 0 {
				return 0, consumed, Flags{Underflow: true}
			}
			return v, consumed, Flags{Overflow: true}
		}
		return 0, 0, Flags{}
	}
	return v, consumed, Flags{}
}

// ParseBool parses the "true"/"false" keyword at the start of s.
func ParseBool(s string) (value bool, consumed int, ok bool) {
	if strings.HasPrefix(s, "true") {
		return true, 4, true
	}
	if strings.HasPrefix(s, "false") {
		return false, 5, true
	}
	return false, 0, false
}
