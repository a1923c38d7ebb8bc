package otp

import "strings"

// Standard RFC 4648 base32 alphabet.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// Encode packs src into 5-bit groups over the standard base32 alphabet,
// padding the result with '=' to a multiple of 8 characters.
func Encode(src []byte) string {
	if len(src) == 0 {
		return ""
	}

	var sb strings.Builder

	var buf uint16
	var bits uint

	for _, b := range src {
		buf = buf<<8 | uint16(b)
		bits += 8

		for bits >= 5 {
			bits -= 5
			sb.WriteByte(alphabet[buf>>bits&0x1F])
		}
	}

	// Left-over bits are padded on the right with zeros to a full group.
	if bits > 0 {
		sb.WriteByte(alphabet[buf<<(5-bits)&0x1F])
	}

	for sb.Len()%8 != 0 {
		sb.WriteByte('=')
	}

	return sb.String()
}

// Decode is the tolerant inverse of Encode: it upper-cases the input, skips
// padding and any character outside the alphabet, and reassembles whatever
// full bytes survive. Malformed input never produces an error, only fewer
// bytes.
func Decode(src string) []byte {
	src = strings.ToUpper(strings.TrimRight(src, "="))

	out := make([]byte, 0, len(src)*5/8)

	var buf uint16
	var bits uint

	for i := 0; i < len(src); i++ {
		v := strings.IndexByte(alphabet, src[i])
		if v < 0 {
			continue
		}

		buf = buf<<5 | uint16(v)
		bits += 5

		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buf>>bits))
		}
	}

	// Trailing bits that do not fill a byte are discarded.
	return out
}
