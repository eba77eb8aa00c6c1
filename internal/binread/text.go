package binread

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// TextDecoder turns raw string bytes from a track file into text.
type TextDecoder interface {
	Decode(b []byte) (string, error)
}

type codec struct {
	name   string
	decode func([]byte) (string, bool)
}

// Chain tries each codec in order and returns the first clean decode.
// A decode is clean when it yields no replacement characters.
type Chain struct {
	codecs []codec
}

func (c *Chain) Decode(b []byte) (string, error) {
	s, _, err := c.DecodeNamed(b)
	return s, err
}

// DecodeNamed is Decode plus the name of the codec that matched.
func (c *Chain) DecodeNamed(b []byte) (string, string, error) {
	for _, cd := range c.codecs {
		if s, ok := cd.decode(b); ok {
			return s, cd.name, nil
		}
	}
	return "", "", ErrUndecodableText
}

// Names lists the codecs in the order they are tried.
func (c *Chain) Names() []string {
	out := make([]string, 0, len(c.codecs))
	for _, cd := range c.codecs {
		out = append(out, cd.name)
	}
	return out
}

func decodeUTF8(b []byte) (string, bool) {
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

func decodeASCII(b []byte) (string, bool) {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return "", false
		}
	}
	return string(b), true
}

func strict(enc encoding.Encoding) func([]byte) (string, bool) {
	return func(b []byte) (string, bool) {
		out, err := enc.NewDecoder().Bytes(b)
		if err != nil {
			return "", false
		}
		for _, r := range string(out) {
			if r == utf8.RuneError {
				return "", false
			}
		}
		return string(out), true
	}
}

// UTF8Only accepts valid UTF-8 and nothing else.
func UTF8Only() *Chain {
	return &Chain{codecs: []codec{{"utf-8", decodeUTF8}}}
}

// Legacy is the ordered codec list used by older devices. UTF-8 and ASCII
// come first; the rest follow the historical producer order. Single-byte
// code pages such as cp037 accept almost any input, so later entries are
// rarely reached.
func Legacy() *Chain {
	named := []struct {
		name string
		enc  encoding.Encoding
	}{
		{"big5", traditionalchinese.Big5},
		{"cp037", charmap.CodePage037},
		{"cp437", charmap.CodePage437},
		{"cp850", charmap.CodePage850},
		{"cp852", charmap.CodePage852},
		{"cp855", charmap.CodePage855},
		{"cp858", charmap.CodePage858},
		{"cp860", charmap.CodePage860},
		{"cp862", charmap.CodePage862},
		{"cp863", charmap.CodePage863},
		{"cp865", charmap.CodePage865},
		{"cp866", charmap.CodePage866},
		{"cp874", charmap.Windows874},
		{"cp1140", charmap.CodePage1140},
		{"cp1250", charmap.Windows1250},
		{"cp1251", charmap.Windows1251},
		{"cp1252", charmap.Windows1252},
		{"cp1253", charmap.Windows1253},
		{"cp1254", charmap.Windows1254},
		{"cp1255", charmap.Windows1255},
		{"cp1256", charmap.Windows1256},
		{"cp1257", charmap.Windows1257},
		{"cp1258", charmap.Windows1258},
		{"euc_jp", japanese.EUCJP},
		{"euc_kr", korean.EUCKR},
		{"gbk", simplifiedchinese.GBK},
		{"gb18030", simplifiedchinese.GB18030},
		{"hz", simplifiedchinese.HZGB2312},
		{"iso2022_jp", japanese.ISO2022JP},
		{"latin_1", charmap.ISO8859_1},
		{"iso8859_2", charmap.ISO8859_2},
		{"iso8859_3", charmap.ISO8859_3},
		{"iso8859_4", charmap.ISO8859_4},
		{"iso8859_5", charmap.ISO8859_5},
		{"iso8859_6", charmap.ISO8859_6},
		{"iso8859_7", charmap.ISO8859_7},
		{"iso8859_8", charmap.ISO8859_8},
		{"iso8859_9", charmap.ISO8859_9},
		{"iso8859_10", charmap.ISO8859_10},
		{"iso8859_13", charmap.ISO8859_13},
		{"iso8859_14", charmap.ISO8859_14},
		{"iso8859_15", charmap.ISO8859_15},
		{"iso8859_16", charmap.ISO8859_16},
		{"koi8_r", charmap.KOI8R},
		{"koi8_u", charmap.KOI8U},
		{"mac_cyrillic", charmap.MacintoshCyrillic},
		{"mac_roman", charmap.Macintosh},
		{"shift_jis", japanese.ShiftJIS},
		{"utf_32", utf32.UTF32(utf32.BigEndian, utf32.UseBOM)},
		{"utf_32_be", utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM)},
		{"utf_32_le", utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM)},
		{"utf_16", unicode.UTF16(unicode.BigEndian, unicode.UseBOM)},
		{"utf_16_be", unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)},
		{"utf_16_le", unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)},
	}

	c := &Chain{codecs: make([]codec, 0, len(named)+2)}
	c.codecs = append(c.codecs, codec{"utf-8", decodeUTF8}, codec{"ascii", decodeASCII})
	for _, n := range named {
		c.codecs = append(c.codecs, codec{n.name, strict(n.enc)})
	}
	return c
}
