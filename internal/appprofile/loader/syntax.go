package loader

import (
	"strconv"
	"strings"
)

// ToJSON converts configuration file syntax to strict JSON.
//
// Comments starting with '#' outside of strings are replaced by spaces so
// line numbers in parse errors still match the source. Integer literals
// written in hexadecimal (0x1F) or octal (017) are rewritten in decimal.
// Everything else is copied unchanged, so malformed input stays malformed
// and is reported by the JSON parser.
func ToJSON(src []byte) []byte {
	var b strings.Builder
	b.Grow(len(src))

	n := len(src)
	for i := 0; i < n; {
		c := src[i]
		switch {
		case c == '"':
			j := skipString(src, i)
			b.Write(src[i:j])
			i = j

		case c == '#':
			for i < n && src[i] != '\n' {
				b.WriteByte(' ')
				i++
			}

		case isDigit(c) || (c == '-' && i+1 < n && isDigit(src[i+1])):
			if i > 0 && isWordByte(src[i-1]) {
				b.WriteByte(c)
				i++
				continue
			}
			j := scanNumber(src, i)
			b.WriteString(convertNumber(string(src[i:j])))
			i = j

		default:
			b.WriteByte(c)
			i++
		}
	}

	return []byte(b.String())
}

// skipString returns the index just past the string starting at i.
// An unterminated string runs to the end of input.
func skipString(src []byte, i int) int {
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(src)
}

// scanNumber returns the end of the numeric token starting at i.
func scanNumber(src []byte, i int) int {
	j := i
	if src[j] == '-' {
		j++
	}
	hex := j+1 < len(src) && src[j] == '0' && (src[j+1] == 'x' || src[j+1] == 'X')
	for j < len(src) {
		c := src[j]
		switch {
		case isWordByte(c) || c == '.':
			j++
		case (c == '+' || c == '-') && !hex && (src[j-1] == 'e' || src[j-1] == 'E'):
			j++
		default:
			return j
		}
	}
	return j
}

// convertNumber rewrites hexadecimal and octal integers in decimal.
func convertNumber(tok string) string {
	sign := ""
	digits := tok
	if strings.HasPrefix(digits, "-") {
		sign = "-"
		digits = digits[1:]
	}

	switch {
	case len(digits) > 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X'):
		v, err := strconv.ParseInt(digits[2:], 16, 64)
		if err != nil {
			return tok
		}
		return sign + strconv.FormatInt(v, 10)

	case len(digits) > 1 && digits[0] == '0' && isOctal(digits[1:]):
		v, err := strconv.ParseInt(digits[1:], 8, 64)
		if err != nil {
			return tok
		}
		return sign + strconv.FormatInt(v, 10)
	}

	return tok
}

func isOctal(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '7' {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordByte(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
