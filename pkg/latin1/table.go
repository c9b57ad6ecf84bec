package latin1

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Table maps a stray high byte (0x80..0xFF) to the UTF-8 bytes it should become.
// Bytes without an entry are left alone by the promoter.
type Table map[byte][]byte

// Lookup returns the UTF-8 replacement for b, if any.
func (t Table) Lookup(b byte) ([]byte, bool) {
	v, ok := t[b]
	return v, ok
}

// Clone returns a deep copy, so callers can extend a shared table safely.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = append([]byte(nil), v...)
	}
	return out
}

// observedRunes is the set of characters that actually showed up as stray
// single bytes in the repaired frontend sources.
var observedRunes = []rune{
	'á', 'é', 'í', 'ó', 'ú', 'ñ',
	'Á', 'É', 'Í', 'Ó', 'Ú', 'Ñ',
	'¿', '¡', '×', 'ü', 'Ü',
}

// Observed returns the default table: Spanish letters and punctuation only.
func Observed() Table {
	t := make(Table, len(observedRunes))
	for _, r := range observedRunes {
		b, ok := charmap.ISO8859_1.EncodeRune(r)
		if !ok {
			continue
		}
		t[b] = utf8.AppendRune(nil, r)
	}
	return t
}

// ISO88591 maps every high byte to its ISO-8859-1 code point.
func ISO88591() Table {
	return fromCharmap(charmap.ISO8859_1)
}

// Windows1252 maps high bytes using the CP1252 interpretation (0x80 is €, and so on).
// Bytes CP1252 leaves undefined are not mapped.
func Windows1252() Table {
	return fromCharmap(charmap.Windows1252)
}

func fromCharmap(cm *charmap.Charmap) Table {
	t := make(Table, 128)
	for b := 0x80; b <= 0xFF; b++ {
		r := cm.DecodeByte(byte(b))
		if r == utf8.RuneError {
			continue
		}
		t[byte(b)] = utf8.AppendRune(nil, r)
	}
	return t
}

// FromEncoding builds a table from any single-byte encoding by decoding each
// high byte on its own. Bytes that decode to U+FFFD or to more than one rune are skipped.
func FromEncoding(enc encoding.Encoding) (Table, error) {
	if enc == nil {
		return nil, fmt.Errorf("latin1.FromEncoding: nil encoding")
	}
	dec := enc.NewDecoder()
	t := make(Table, 128)
	for b := 0x80; b <= 0xFF; b++ {
		out, err := dec.Bytes([]byte{byte(b)})
		if err != nil {
			return nil, fmt.Errorf("decode byte 0x%02X: %w", b, err)
		}
		r, size := utf8.DecodeRune(out)
		if r == utf8.RuneError || size != len(out) {
			continue
		}
		t[byte(b)] = out
	}
	return t, nil
}

// ByLabel resolves a table by name. "observed" (or an empty label) gives the
// default table; anything else is looked up as a WHATWG encoding label
// ("latin1", "cp1252", "iso-8859-15", ...).
func ByLabel(label string) (Table, string, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" || l == "observed" {
		return Observed(), "observed", nil
	}

	enc, name := charset.Lookup(l)
	if enc == nil {
		return nil, "", fmt.Errorf("unknown encoding label %q", label)
	}
	if name == "utf-8" {
		return nil, "", fmt.Errorf("encoding label %q is not a single-byte encoding", label)
	}
	t, err := FromEncoding(enc)
	if err != nil {
		return nil, "", fmt.Errorf("build table for %s: %w", name, err)
	}
	return t, name, nil
}
