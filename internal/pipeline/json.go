package pipeline

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type jsonField struct {
	Key   string
	Value string
}

// jsonObject keeps insertion order, which encoding/json maps do not.
type jsonObject []jsonField

func (o *jsonObject) set(key, value string) {
	for i := range *o {
		if (*o)[i].Key == key {
			(*o)[i].Value = value
			return
		}
	}
	*o = append(*o, jsonField{Key: key, Value: value})
}

// encodeObjects renders a list of string objects with ", " and ": "
// separators and non-ASCII escaped as \uXXXX, the layout downstream
// consumers parse.
func encodeObjects(objs []jsonObject) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, obj := range objs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('{')
		for j, f := range obj {
			if j > 0 {
				b.WriteString(", ")
			}
			writeQuoted(&b, f.Key)
			b.WriteString(": ")
			writeQuoted(&b, f.Value)
		}
		b.WriteByte('}')
	}
	b.WriteByte(']')
	return b.String()
}

func writeQuoted(b *strings.Builder, s string) {
	b.WriteByte('"')
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]

		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r <= 0x7e:
				b.WriteRune(r)
			case r > 0xffff:
				r -= 0x10000
				fmt.Fprintf(b, `\u%04x\u%04x`, 0xd800+(r>>10), 0xdc00+(r&0x3ff))
			default:
				fmt.Fprintf(b, `\u%04x`, r)
			}
		}
	}
	b.WriteByte('"')
}
