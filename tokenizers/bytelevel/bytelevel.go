// Package bytelevel implements the reversible byte to code point mapping used by GPT-2 style
// byte-level BPE vocabularies (Qwen3 included).
//
// Every one of the 256 byte values maps to a printable, non-whitespace code point, so raw bytes
// (including UTF-8 continuation bytes) can be merged and stored in vocab.json like ordinary characters.
// E.g.: the space (0x20) maps to 'Ġ' (U+0120) and the newline (0x0A) to 'Ċ' (U+010A).
package bytelevel

import (
	"strings"
	"unicode/utf8"
)

var (
	byteToRune [256]rune
	runeToByte map[rune]byte

	// byteToString caches the UTF-8 encoding of byteToRune, to avoid re-encoding runes on every call.
	byteToString [256]string
)

func init() {
	runeToByte = make(map[rune]byte, 256)

	// Bytes already printable keep their own code point, the others are shifted to 256+n.
	n := 0
	for b := 0; b < 256; b++ {
		var r rune
		if (b >= '!' && b <= '~') || (b >= 0xA1 && b <= 0xAC) || (b >= 0xAE && b <= 0xFF) {
			r = rune(b)
		} else {
			r = rune(256 + n)
			n++
		}
		byteToRune[b] = r
		runeToByte[r] = byte(b)
		byteToString[b] = string(r)
	}
}

// Rune returns the code point that represents b.
func Rune(b byte) rune {
	return byteToRune[b]
}

// Byte returns the byte represented by r, and whether r is part of the byte-level alphabet.
func Byte(r rune) (byte, bool) {
	b, ok := runeToByte[r]
	return b, ok
}

// Encode maps each byte of data to its code point and returns the resulting string.
func Encode(data []byte) string {
	var sb strings.Builder
	sb.Grow(2 * len(data))
	for _, b := range data {
		sb.WriteString(byteToString[b])
	}
	return sb.String()
}

// EncodeString is like Encode, but takes the raw bytes of s.
func EncodeString(s string) string {
	var sb strings.Builder
	sb.Grow(2 * len(s))
	for i := 0; i < len(s); i++ {
		sb.WriteString(byteToString[s[i]])
	}
	return sb.String()
}

// EncodeWithOffsets is like EncodeString, but it also returns offsets such that the encoding of
// s[i:j] is encoded[offsets[i]:offsets[j]]. It has len(s)+1 entries.
func EncodeWithOffsets(s string) (encoded string, offsets []int) {
	var sb strings.Builder
	sb.Grow(2 * len(s))
	offsets = make([]int, len(s)+1)
	for i := 0; i < len(s); i++ {
		offsets[i] = sb.Len()
		sb.WriteString(byteToString[s[i]])
	}
	offsets[len(s)] = sb.Len()
	return sb.String(), offsets
}

// Decode maps the code points of s back to the bytes they represent.
//
// Code points outside the byte-level alphabet are copied over as their UTF-8 encoding.
func Decode(s string) []byte {
	return AppendDecode(make([]byte, 0, len(s)), s)
}

// AppendDecode is like Decode, but appends the bytes to dst.
func AppendDecode(dst []byte, s string) []byte {
	for _, r := range s {
		if b, ok := runeToByte[r]; ok {
			dst = append(dst, b)
		} else {
			dst = utf8.AppendRune(dst, r)
		}
	}
	return dst
}
