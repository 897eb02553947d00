// Package xlsvis implements the workbook-visibility mutator: it clears
// the "hidden" bit of the first WINDOW1 record in a BIFF8 Workbook stream
// so a workbook embedded as hidden becomes visible when extracted.
package xlsvis

import (
	"encoding/binary"

	"github.com/cfbkit/oleobj"
)

const (
	sidBOF     = 0x0809
	sidWindow1 = 0x003D
)

// SetVisible clears WINDOW1's grbit bit 0 (the "hidden" flag) in a copy
// of workbookStream and returns that copy; workbookStream itself is not
// modified. The first record must be BOF; the mutator
// stops at the first WINDOW1 it finds, which is deliberate — embedded
// workbooks may carry more than one, but only the first governs whether
// the workbook opens visible.
func SetVisible(workbookStream []byte) ([]byte, error) {
	out := append([]byte(nil), workbookStream...)

	pos := 0
	first := true
	for pos+4 <= len(out) {
		sid := binary.LittleEndian.Uint16(out[pos:])
		length := int(binary.LittleEndian.Uint16(out[pos+2:]))
		payloadStart := pos + 4
		payloadEnd := payloadStart + length
		if payloadEnd > len(out) {
			return nil, oleobj.Errf(oleobj.CorruptFile, nil, "xlsvis: record sid %#x length %d exceeds buffer", sid, length)
		}

		if first {
			if sid != sidBOF {
				return nil, oleobj.Errf(oleobj.CorruptFile, nil, "xlsvis: first workbook record is sid %#x, want BOF", sid)
			}
			first = false
		}

		if sid == sidWindow1 {
			const grbitOffset = 8 // skip xWn, yWn, dxWn, dyWn (4 x u16)
			if length < grbitOffset+2 {
				return nil, oleobj.Errf(oleobj.CorruptFile, nil, "xlsvis: WINDOW1 record too short")
			}
			grbitPos := payloadStart + grbitOffset
			grbit := binary.LittleEndian.Uint16(out[grbitPos:])
			grbit &^= 0x0001
			binary.LittleEndian.PutUint16(out[grbitPos:], grbit)
			return out, nil
		}

		pos = payloadEnd
	}

	// No WINDOW1 record found: nothing to do, return unchanged.
	return out, nil
}
