package oleobj

import "github.com/cfbkit/oleobj/byteio"

// ObjInfoStream is the decoded content of a \3ObjInfo stream: a pair of
// 16-bit bit fields bracketing a clipboard-format enum.
type ObjInfoStream struct {
	FDefHandler        bool
	FLink              bool
	FIcon              bool
	FIsOle1            bool
	FManual            bool
	FRecomposeOnResize bool
	FOCX               bool
	FStream            bool
	FViewObject        bool

	Cf uint16

	// Second bit field; only populated when the stream carries trailing
	// bytes (older producers omit it).
	HasEMFFields bool
	FEMF         bool
	FQueriedEMF  bool
	FStoredAsEMF bool
}

func bit(v uint16, n uint) bool { return v&(1<<n) != 0 }

// DecodeObjInfo decodes a \3ObjInfo stream.
func DecodeObjInfo(b []byte) (*ObjInfoStream, error) {
	r := byteio.NewReaderFromBytes(b)

	flags1, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := &ObjInfoStream{
		FDefHandler:        bit(flags1, 1),
		FLink:              bit(flags1, 4),
		FIcon:              bit(flags1, 6),
		FIsOle1:            bit(flags1, 7),
		FManual:            bit(flags1, 8),
		FRecomposeOnResize: bit(flags1, 9),
		FOCX:               bit(flags1, 12),
		FStream:            bit(flags1, 13),
		FViewObject:        bit(flags1, 15),
	}

	cf, err := r.U16()
	if err != nil {
		return nil, err
	}
	out.Cf = cf

	flags2, err := r.U16()
	if err != nil {
		// Trailing bit field is optional.
		return out, nil
	}
	out.HasEMFFields = true
	out.FEMF = bit(flags2, 0)
	out.FQueriedEMF = bit(flags2, 1)
	out.FStoredAsEMF = bit(flags2, 2)

	return out, nil
}
