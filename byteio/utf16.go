package byteio

import "golang.org/x/text/encoding/unicode"

// utf16LEDecoder turns a little-endian UTF-16 byte slice into UTF-8. With
// IgnoreBOM a leading byte-order mark is not interpreted: a U+FEFF in the
// input decodes as an ordinary character.
var utf16LEDecoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

// decodeUTF16LEBytes decodes a little-endian UTF-16 byte slice to UTF-8,
// dropping a malformed trailing half-codeunit rather than failing.
func decodeUTF16LEBytes(b []byte) ([]byte, error) {
	if len(b)%2 == 1 {
		b = b[:len(b)-1]
	}
	return utf16LEDecoder.Bytes(b)
}
