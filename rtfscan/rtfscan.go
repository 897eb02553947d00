// Package rtfscan locates OLE object payloads embedded in RTF documents.
// An embedded object in RTF is carried as a "{\object ... {\*\objdata
// <hex>}}" group: the hex digits between \objdata and the group's closing
// brace are the literal bytes of an OLE1.0 or compound-file object, ready
// to be handed to cfb.Open or oleobj's OLE 1.0 decoders.
//
// The group-stack/control-word tracking here follows the same shape as
// the pack's plain-text RTF extractor, rewritten for the \objdata
// hex-payload grammar rather than text emission.
package rtfscan

import (
	"encoding/hex"

	"github.com/cfbkit/oleobj"
)

// FindObjectPayloads scans rtf for every \objdata group and returns the
// decoded bytes of each, in document order. A malformed (odd-length) hex
// payload fails the whole scan with a Format error; a document with no
// objdata groups at all returns a nil slice and no error.
func FindObjectPayloads(rtf []byte) ([][]byte, error) {
	var payloads [][]byte
	depth := 0
	collecting := false
	collectDepth := 0
	var hexBuf []byte

	n := len(rtf)
	for i := 0; i < n; {
		c := rtf[i]
		switch {
		case c == '{':
			depth++
			i++

		case c == '}':
			if collecting && depth <= collectDepth {
				payload, err := decodeHexPayload(hexBuf)
				if err != nil {
					return nil, err
				}
				payloads = append(payloads, payload)
				collecting = false
				hexBuf = nil
			}
			depth--
			i++

		case c == '\\':
			word, next := readControlWord(rtf, i+1)
			i = next
			if word == "objdata" {
				collecting = true
				collectDepth = depth
				hexBuf = nil
			}

		case collecting:
			if isHexDigit(c) {
				hexBuf = append(hexBuf, c)
			}
			i++

		default:
			i++
		}
	}

	return payloads, nil
}

// readControlWord parses the control word or control symbol starting
// right after the backslash at rtf[start]. It returns the word
// lower-cased with any numeric parameter stripped, and the index of the
// first byte after it — including the single optional space RTF uses as
// a control-word delimiter, which is consumed here rather than emitted.
func readControlWord(rtf []byte, start int) (word string, next int) {
	n := len(rtf)
	if start >= n {
		return "", start
	}
	if !isAlpha(rtf[start]) {
		// A control symbol (e.g. \*, \~, \-) is exactly one character.
		return "", start + 1
	}

	i := start
	for i < n && isAlpha(rtf[i]) {
		i++
	}
	word = lowerASCII(rtf[start:i])

	if i < n && (rtf[i] == '-' || isDigit(rtf[i])) {
		if rtf[i] == '-' {
			i++
		}
		for i < n && isDigit(rtf[i]) {
			i++
		}
	}
	if i < n && rtf[i] == ' ' {
		i++
	}
	return word, i
}

func decodeHexPayload(hexBuf []byte) ([]byte, error) {
	out := make([]byte, hex.DecodedLen(len(hexBuf)))
	_, err := hex.Decode(out, hexBuf)
	if err != nil {
		return nil, oleobj.Errf(oleobj.Format, err, "rtfscan: malformed \\objdata hex payload")
	}
	return out, nil
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func lowerASCII(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
