package classfile

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

// decodeModifiedUTF8 converts the JVM's modified UTF-8 encoding (JVMS
// §4.4.7) of a CONSTANT_Utf8 entry to a Go string. Modified UTF-8 differs
// from standard UTF-8 in two ways this VM cannot ignore: the null
// character is encoded as the two-byte sequence 0xC0 0x80 instead of a
// single zero byte, and characters outside the Basic Multilingual Plane
// are encoded as a CESU-8 surrogate pair (two 3-byte sequences, one per
// UTF-16 code unit) rather than one 4-byte UTF-8 sequence.
//
// The first pass below walks the 1/2/3-byte lead-byte forms and recovers
// the underlying UTF-16 code units, surrogate halves included. The second
// pass hands those code units, packed big-endian, to
// golang.org/x/text/encoding/unicode's UTF-16 decoder (the pack's own
// tool for this, saferwall-pe's DecodeUTF16String) to recombine surrogate
// pairs into real runes and produce a correct UTF-8 string.
func decodeModifiedUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	i := 0
	for i < len(b) {
		c0 := b[i]
		switch {
		case c0&0x80 == 0x00: // 1-byte: 0xxxxxxx
			units = append(units, uint16(c0))
			i++
		case c0&0xe0 == 0xc0: // 2-byte: 110xxxxx 10xxxxxx (includes 0xC0 0x80 -> NUL)
			if i+1 >= len(b) {
				return "", fmt.Errorf("modified UTF-8: truncated 2-byte sequence at %d", i)
			}
			c1 := b[i+1]
			units = append(units, uint16(c0&0x1f)<<6|uint16(c1&0x3f))
			i += 2
		case c0&0xf0 == 0xe0: // 3-byte: 1110xxxx 10xxxxxx 10xxxxxx
			if i+2 >= len(b) {
				return "", fmt.Errorf("modified UTF-8: truncated 3-byte sequence at %d", i)
			}
			c1, c2 := b[i+1], b[i+2]
			units = append(units, uint16(c0&0x0f)<<12|uint16(c1&0x3f)<<6|uint16(c2&0x3f))
			i += 3
		default:
			return "", fmt.Errorf("modified UTF-8: invalid lead byte 0x%02x at %d", c0, i)
		}
	}

	packed := make([]byte, len(units)*2)
	for idx, u := range units {
		packed[idx*2] = byte(u >> 8)
		packed[idx*2+1] = byte(u)
	}

	decoder := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	s, err := decoder.Bytes(packed)
	if err != nil {
		return "", fmt.Errorf("modified UTF-8: recombining surrogate pairs: %w", err)
	}
	return string(s), nil
}
