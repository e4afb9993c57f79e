// Package textenc resolves manifest text encodings by name or code page and
// produces encoders that write an optional byte-order mark only at the start
// of a file.
package textenc

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// ErrUnknown reports an encoding name that cannot be resolved.
var ErrUnknown = errors.New("unknown text encoding")

// Encoding is a resolved manifest encoding.
type Encoding struct {
	name  string
	bom   bool
	plain encoding.Encoding
	// marked is the BOM-writing variant; nil when the encoding has no BOM form.
	marked encoding.Encoding
}

type family struct {
	plain  encoding.Encoding
	marked encoding.Encoding
}

var (
	utf8Family    = family{plain: unicode.UTF8, marked: unicode.UTF8BOM}
	utf16LEFamily = family{
		plain:  unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
		marked: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	}
	utf16BEFamily = family{
		plain:  unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
		marked: unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	}
	utf32LEFamily = family{
		plain:  utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
		marked: utf32.UTF32(utf32.LittleEndian, utf32.UseBOM),
	}
	utf32BEFamily = family{
		plain:  utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
		marked: utf32.UTF32(utf32.BigEndian, utf32.UseBOM),
	}
)

// Names are compared after lower-casing and dropping '-' and '_'.
var byName = map[string]family{
	"utf8":        utf8Family,
	"unicode":     utf16LEFamily,
	"utf16":       utf16LEFamily,
	"utf16le":     utf16LEFamily,
	"unicodefffe": utf16BEFamily,
	"utf16be":     utf16BEFamily,
	"utf32":       utf32LEFamily,
	"utf32le":     utf32LEFamily,
	"utf32be":     utf32BEFamily,
	"iso88591":    {plain: charmap.ISO8859_1},
	"iso88592":    {plain: charmap.ISO8859_2},
	"iso88593":    {plain: charmap.ISO8859_3},
	"iso88594":    {plain: charmap.ISO8859_4},
	"iso88595":    {plain: charmap.ISO8859_5},
	"iso88596":    {plain: charmap.ISO8859_6},
	"iso88597":    {plain: charmap.ISO8859_7},
	"iso88598":    {plain: charmap.ISO8859_8},
	"iso88599":    {plain: charmap.ISO8859_9},
	"iso885913":   {plain: charmap.ISO8859_13},
	"iso885915":   {plain: charmap.ISO8859_15},
	"windows1252": {plain: charmap.Windows1252},
}

var byCodePage = map[int]string{
	1200:  "utf16le",
	1201:  "utf16be",
	1252:  "windows1252",
	12000: "utf32le",
	12001: "utf32be",
	20127: "ascii",
	28591: "iso88591",
	28592: "iso88592",
	28593: "iso88593",
	28594: "iso88594",
	28595: "iso88595",
	28596: "iso88596",
	28597: "iso88597",
	28598: "iso88598",
	28599: "iso88599",
	28603: "iso885913",
	28605: "iso885915",
	65001: "utf8",
}

// Lookup resolves name (or a numeric Windows code page) to an Encoding. An
// empty name selects UTF-8. Labels not in the built-in table are looked up in
// the WHATWG encoding index; those never carry a BOM.
func Lookup(name string, bom bool) (Encoding, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		trimmed = "utf-8"
	}
	key := normalize(trimmed)
	if cp, err := strconv.Atoi(key); err == nil {
		mapped, ok := byCodePage[cp]
		if !ok {
			return Encoding{}, fmt.Errorf("%w: code page %d", ErrUnknown, cp)
		}
		key = mapped
	}
	if key == "ascii" || key == "usascii" {
		enc, err := htmlindex.Get("us-ascii")
		if err != nil {
			return Encoding{}, fmt.Errorf("%w: %s", ErrUnknown, trimmed)
		}
		return Encoding{name: trimmed, bom: bom, plain: enc}, nil
	}
	if fam, ok := byName[key]; ok {
		return Encoding{name: trimmed, bom: bom, plain: fam.plain, marked: fam.marked}, nil
	}
	enc, err := htmlindex.Get(trimmed)
	if err != nil {
		return Encoding{}, fmt.Errorf("%w: %s", ErrUnknown, trimmed)
	}
	return Encoding{name: trimmed, bom: bom, plain: enc}, nil
}

// UTF8 returns the default encoding without a byte-order mark.
func UTF8() Encoding {
	return Encoding{name: "utf-8", plain: utf8Family.plain, marked: utf8Family.marked}
}

// Name returns the configured encoding label.
func (e Encoding) Name() string {
	if e.name == "" {
		return "utf-8"
	}
	return e.name
}

// BOM reports whether the encoding writes a byte-order mark.
func (e Encoding) BOM() bool {
	return e.bom && e.marked != nil
}

// NewWriter wraps w with an encoder. fresh must be true only when w is
// positioned at the start of an empty file; a BOM is written in that case
// alone so appended chunks never embed a second mark. Characters that the
// encoding cannot represent are replaced rather than failing the write.
// Close flushes buffered output but does not close w.
func (e Encoding) NewWriter(w io.Writer, fresh bool) io.WriteCloser {
	enc := e.plain
	if enc == nil {
		enc = utf8Family.plain
	}
	if fresh && e.BOM() {
		enc = e.marked
	}
	return transform.NewWriter(w, encoding.ReplaceUnsupported(enc.NewEncoder()))
}

func normalize(name string) string {
	name = strings.ToLower(name)
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(name)
}
