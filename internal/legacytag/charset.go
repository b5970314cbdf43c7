package legacytag

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Charset is the single-byte text encoding used inside the trailer.
type Charset int

const (
	Auto   Charset = iota // Chosen per tag from its text.
	Latin1                // ISO-8859-1.
	Latin5                // ISO-8859-9 (Turkish).
)

func (c Charset) String() string {
	switch c {
	case Latin1:
		return "latin1"
	case Latin5:
		return "latin5"
	}
	return "auto"
}

// ParseCharset maps a configuration string onto a Charset. Empty or
// unrecognised input yields Auto with ok=false for the latter.
func ParseCharset(s string) (Charset, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Auto, true
	case "auto":
		return Auto, true
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return Latin1, true
	case "latin5", "latin-5", "iso-8859-9", "iso8859-9", "turkish":
		return Latin5, true
	}
	return Auto, false
}

// turkish are the letters that force Latin-5 in auto mode. ISO-8859-9
// places them at 0xD0 0xF0 0xDD 0xFD 0xDE 0xFE.
const turkish = "ĞğİıŞş"

// SelectCharset resolves the charset for a tag. A valid override wins;
// otherwise any Turkish-specific letter in fields selects Latin-5.
func SelectCharset(override string, fields ...string) Charset {
	if cs, ok := ParseCharset(override); ok && cs != Auto {
		return cs
	}
	for _, f := range fields {
		if strings.ContainsAny(f, turkish) {
			return Latin5
		}
	}
	return Latin1
}

// encodeRune maps r to its trailer byte. Only the six Turkish letters get
// remapped in Latin-5; every other rune in [0x20, 0xFF] is its own code
// point and anything else becomes '?'.
func encodeRune(cs Charset, r rune) byte {
	if cs == Latin5 && strings.ContainsRune(turkish, r) {
		if b, ok := charmap.ISO8859_9.EncodeRune(r); ok {
			return b
		}
	}
	if r >= 0x20 && r <= 0xFF {
		return byte(r)
	}
	return '?'
}

func decodeByte(cs Charset, b byte) rune {
	if cs == Latin5 {
		return charmap.ISO8859_9.DecodeByte(b)
	}
	return charmap.ISO8859_1.DecodeByte(b)
}
