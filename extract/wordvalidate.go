package extract

import (
	"encoding/binary"

	"github.com/cfbkit/oleobj"
	"github.com/cfbkit/oleobj/cfb"
)

// wordIdent is FibBase.wIdent's fixed value (MS-DOC 2.5.1), the first
// field of a WordDocument stream's File Information Block. It is the one
// FIB field the reserialization path has any use for: a mismatch means
// the storage only looks like a Word document by virtue of carrying a
// stream named "WordDocument", not by virtue of containing one.
const wordIdent = 0xA5EC

// fibBaseSize is FibBase's fixed-size header length in bytes.
const fibBaseSize = 32

// validateNestedWordDocument sanity-checks a nested WordDocument stream
// before it is re-serialized as a standalone ".doc". Reserialization
// copies the storage's bytes through unchanged, so nothing past wIdent
// needs parsing here — a deeper FIB walk would buy nothing this check
// doesn't already cover.
func validateNestedWordDocument(s *cfb.Storage) error {
	st, err := s.GetStream("WordDocument")
	if err != nil {
		return err
	}
	data, err := st.GetData()
	if err != nil {
		return err
	}
	if len(data) < fibBaseSize {
		return oleobj.Errf(oleobj.CorruptFile, nil, "extract: nested WordDocument stream too short for a FIB")
	}
	if ident := binary.LittleEndian.Uint16(data); ident != wordIdent {
		return oleobj.Errf(oleobj.CorruptFile, nil, "extract: nested WordDocument stream has wIdent %#x, want %#x", ident, wordIdent)
	}
	return nil
}
