package oleobj

import "github.com/cfbkit/oleobj/byteio"

// CompObjStream is the decoded content of a \1CompObj stream.
type CompObjStream struct {
	AnsiUserType string
	ClipFormat   uint32
	StringFormat string
	UnicodeMark  bool
}

// DecodeCompObj decodes a \1CompObj stream per the documented layout: a
// 28-byte header, a 4-byte length-prefixed AnsiUserType, then a
// marker-or-length switch repeated once more if a unicode marker follows.
func DecodeCompObj(b []byte) (*CompObjStream, error) {
	r := byteio.NewReaderFromBytes(b)
	if err := r.Skip(28); err != nil {
		return nil, err
	}

	userType, err := r.Ansi4Prefixed()
	if err != nil {
		return nil, err
	}

	out := &CompObjStream{AnsiUserType: userType}
	if err := decodeCompObjFormatArm(r, out); err != nil {
		return nil, err
	}

	// Reserved1 (length-prefixed ANSI); only meaningful when length <= 0x28.
	if _, err := r.Ansi4Prefixed(); err != nil {
		return nil, err
	}

	unicodeMarker, err := r.U32()
	if err != nil {
		// Trailing fields are optional; treat EOF here as "nothing more".
		return out, nil
	}
	if unicodeMarker == 0x71B239F4 {
		out.UnicodeMark = true
		_ = decodeCompObjFormatArm(r, out) // best-effort; optional trailer
	}

	return out, nil
}

// decodeCompObjFormatArm implements the shared marker-or-length switch
// used both for the ANSI format arm and (if present) the Unicode arm.
func decodeCompObjFormatArm(r *byteio.Reader, out *CompObjStream) error {
	markerOrLength, err := r.U32()
	if err != nil {
		return err
	}
	switch markerOrLength {
	case 0x00000000:
		// No further format info.
	case 0xFFFFFFFF, 0xFFFFFFFE:
		cf, err := r.U32()
		if err != nil {
			return err
		}
		out.ClipFormat = cf
	default:
		// Not a marker: rewind conceptually by re-reading markerOrLength
		// bytes of ANSI text using the value we already consumed as the
		// length prefix.
		raw, err := r.Full(int(markerOrLength))
		if err != nil {
			return err
		}
		out.StringFormat = string(raw)
	}
	return nil
}
