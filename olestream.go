package oleobj

import "github.com/cfbkit/oleobj/byteio"

// OleLinkKind distinguishes an embedded object from a linked one, as
// carried by the \1Ole stream's flags field.
type OleLinkKind int

const (
	// OleEmbedded means flags was 0 or 0x1000.
	OleEmbedded OleLinkKind = iota
	// OleLinked means flags was 1 or 0x1001.
	OleLinked
)

// Moniker is the decoded content of a MonikerStream: a packetized CLSID
// followed by opaque, format-specific bytes.
type Moniker struct {
	CLSID [16]byte
	Data  []byte
}

// DecodeMoniker decodes a MonikerStream: a 16-byte packetized CLSID
// followed by size-16 bytes of opaque payload.
func DecodeMoniker(b []byte) (*Moniker, error) {
	r := byteio.NewReaderFromBytes(b)
	clsid, err := r.Full(16)
	if err != nil {
		return nil, err
	}
	rest, err := r.Full(len(b) - 16)
	if err != nil {
		return nil, err
	}
	m := &Moniker{Data: rest}
	copy(m.CLSID[:], clsid)
	return m, nil
}

// OleStream is the decoded content of a \1Ole stream.
type OleStream struct {
	Version OleLinkKind
	// Kind says whether this object is embedded or linked. Only the
	// Linked fields below are populated when Kind == OleLinked.
	Kind OleLinkKind

	RelativeSourceMoniker *Moniker
	AbsoluteSourceMoniker *Moniker
	CLSIDIndicator        int32
	CLSID                 [16]byte
	LocalUpdateTime       uint32
	LocalCheckTime        uint32
	RemoteUpdateTime      uint32
}

// DecodeOleStream decodes a \1Ole stream per the documented layout:
// version, flags (embedded vs linked), link-update options, a reserved
// zero, a reserved moniker size to skip, and — only when linked — the
// relative/absolute source monikers, a CLSID indicator and CLSID, and
// three FILETIME-low-half timestamps.
func DecodeOleStream(b []byte) (*OleStream, error) {
	r := byteio.NewReaderFromBytes(b)

	version, err := r.U16()
	if err != nil {
		return nil, err
	}
	flags, err := r.U32()
	if err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // link update options
		return nil, err
	}
	reserved, err := r.U32()
	if err != nil {
		return nil, err
	}
	if reserved != 0 {
		return nil, Errf(CorruptFile, nil, "ole: \\1Ole reserved field is non-zero")
	}
	reservedMonikerSize, err := r.U32()
	if err != nil {
		return nil, err
	}
	if err := r.Skip(int(reservedMonikerSize)); err != nil {
		return nil, err
	}

	out := &OleStream{Version: OleLinkKind(version)}
	switch flags {
	case 0, 0x1000:
		out.Kind = OleEmbedded
		return out, nil
	case 1, 0x1001:
		out.Kind = OleLinked
	default:
		return nil, Errf(CorruptFile, nil, "ole: \\1Ole unrecognized flags %#x", flags)
	}

	relSize, err := r.U32()
	if err != nil {
		return nil, err
	}
	if relSize > 0 {
		relRaw, err := r.Full(int(relSize))
		if err != nil {
			return nil, err
		}
		out.RelativeSourceMoniker, err = DecodeMoniker(relRaw)
		if err != nil {
			return nil, err
		}
	}

	absSize, err := r.U32()
	if err != nil {
		return nil, err
	}
	if absSize > 0 {
		absRaw, err := r.Full(int(absSize))
		if err != nil {
			return nil, err
		}
		out.AbsoluteSourceMoniker, err = DecodeMoniker(absRaw)
		if err != nil {
			return nil, err
		}
	}

	clsidIndicator, err := r.I32()
	if err != nil {
		return nil, err
	}
	if clsidIndicator != -1 {
		return nil, Errf(CorruptFile, nil, "ole: \\1Ole clsidIndicator = %d, want -1", clsidIndicator)
	}
	out.CLSIDIndicator = clsidIndicator

	clsid, err := r.Full(16)
	if err != nil {
		return nil, err
	}
	copy(out.CLSID[:], clsid)

	// Reserved display name (length-prefixed UTF-16LE) and a reserved
	// 32-bit integer.
	if _, err := r.UTF16LE4Prefixed(); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil {
		return nil, err
	}

	if out.LocalUpdateTime, err = r.U32(); err != nil {
		return nil, err
	}
	if out.LocalCheckTime, err = r.U32(); err != nil {
		return nil, err
	}
	if out.RemoteUpdateTime, err = r.U32(); err != nil {
		return nil, err
	}

	return out, nil
}
