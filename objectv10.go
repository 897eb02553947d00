package oleobj

import "github.com/cfbkit/oleobj/byteio"

// ObjectV10Format is the OLE 1.0 ObjectHeader's format discriminator.
type ObjectV10Format int32

const (
	ObjectV10NotSet       ObjectV10Format = 0
	ObjectV10Link         ObjectV10Format = 1
	ObjectV10File         ObjectV10Format = 2
	ObjectV10Presentation ObjectV10Format = 5
)

// PresentationKind distinguishes the "standard" presentation layout
// (METAFILEPICT/BITMAP/DIB, with a typed sub-header) from the generic one
// (an arbitrary registered or predefined clipboard format).
type PresentationKind int

const (
	PresentationStandard PresentationKind = iota
	PresentationGeneric
)

// Presentation is the decoded trailing presentation object that follows a
// Link or File object (or stands alone for Format == Presentation).
type Presentation struct {
	Kind PresentationKind

	// Standard presentation fields (METAFILEPICT/BITMAP/DIB).
	Width  int32
	Height int32
	Data   []byte

	// Generic presentation fields.
	ClipboardFormat int32
	Registered      bool
	StringFormat    string
}

// ObjectV10 is the decoded OLE 1.0 top-level object chain: Version,
// Format, ClassName, and (depending on Format) a Link/File header plus a
// trailing Presentation object.
type ObjectV10 struct {
	Version int32
	Format  ObjectV10Format

	ClassName string

	// Link fields.
	TopicName         string
	ItemName          string
	NetworkName       string
	LinkUpdateOptions int32

	// File fields.
	NativeData []byte

	Presentation *Presentation
}

// DecodeObjectV10 decodes an OLE 1.0 object chain per spec.md §4.6.
func DecodeObjectV10(b []byte) (*ObjectV10, error) {
	r := byteio.NewReaderFromBytes(b)

	version, err := r.I32()
	if err != nil {
		return nil, err
	}
	format, err := r.I32()
	if err != nil {
		return nil, err
	}

	out := &ObjectV10{Version: version, Format: ObjectV10Format(format)}
	if out.Format != ObjectV10NotSet {
		className, err := r.Ansi4Prefixed()
		if err != nil {
			return nil, err
		}
		out.ClassName = className
	}

	switch out.Format {
	case ObjectV10Link:
		if err := decodeLinkObject(r, out); err != nil {
			return nil, err
		}
		pres, err := decodePresentationFor(r, out.ClassName)
		if err != nil {
			return nil, err
		}
		out.Presentation = pres

	case ObjectV10File:
		topic, item, err := decodeObjectHeader(r)
		if err != nil {
			return nil, err
		}
		out.TopicName, out.ItemName = topic, item

		nativeSize, err := r.U32()
		if err != nil {
			return nil, err
		}
		data, err := r.Full(int(nativeSize))
		if err != nil {
			return nil, err
		}
		out.NativeData = data

		pres, err := decodePresentationFor(r, out.ClassName)
		if err != nil {
			return nil, err
		}
		out.Presentation = pres

	case ObjectV10Presentation:
		pres, err := decodePresentationFor(r, out.ClassName)
		if err != nil {
			return nil, err
		}
		out.Presentation = pres

	default:
		return nil, Errf(CorruptFile, nil, "ole1: unrecognized ObjectHeader format %d", format)
	}

	return out, nil
}

// decodeObjectHeader reads the common TopicName/ItemName pair that
// prefixes both Link and File objects.
func decodeObjectHeader(r *byteio.Reader) (topicName, itemName string, err error) {
	topicName, err = r.Ansi4Prefixed()
	if err != nil {
		return "", "", err
	}
	itemName, err = r.Ansi4Prefixed()
	if err != nil {
		return "", "", err
	}
	return topicName, itemName, nil
}

// decodeLinkObject reads a Link object's header: ObjectHeader
// (TopicName/ItemName), then NetworkName, TopicName again, a 4-byte skip,
// and LinkUpdateOptions.
func decodeLinkObject(r *byteio.Reader, out *ObjectV10) error {
	topic, item, err := decodeObjectHeader(r)
	if err != nil {
		return err
	}
	out.TopicName, out.ItemName = topic, item

	networkName, err := r.Ansi4Prefixed()
	if err != nil {
		return err
	}
	out.NetworkName = networkName

	// TopicName repeated.
	if _, err := r.Ansi4Prefixed(); err != nil {
		return err
	}
	if err := r.Skip(4); err != nil {
		return err
	}

	opts, err := r.I32()
	if err != nil {
		return err
	}
	out.LinkUpdateOptions = opts
	return nil
}

// standardPresentationClassNames are the ClassName values that use the
// typed "standard presentation" sub-header rather than the generic one.
var standardPresentationClassNames = map[string]bool{
	"METAFILEPICT": true,
	"BITMAP":       true,
	"DIB":          true,
}

// Well-known clipboard-format values the generic presentation path
// special-cases (they carry a plain size-prefixed blob with no
// string-format field).
const (
	cfBitmap       = 2
	cfDIB          = 8
	cfEnhMetafile  = 14
	cfMetafilePict = 3
)

func decodePresentationFor(r *byteio.Reader, className string) (*Presentation, error) {
	if standardPresentationClassNames[className] {
		return decodeStandardPresentation(r)
	}
	return decodeGenericPresentation(r)
}

// decodeStandardPresentation reads width, height, and a size-prefixed
// data blob; METAFILEPICT additionally carries an 8-byte sub-header
// (mapping mode + extent) ahead of the metafile bytes, which is folded
// into Data unparsed (its bytes are preserved, not decoded, per spec's
// Non-goals).
func decodeStandardPresentation(r *byteio.Reader) (*Presentation, error) {
	width, err := r.I32()
	if err != nil {
		return nil, err
	}
	height, err := r.I32()
	if err != nil {
		return nil, err
	}
	size, err := r.U32()
	if err != nil {
		return nil, err
	}
	data, err := r.Full(int(size))
	if err != nil {
		return nil, err
	}
	return &Presentation{Kind: PresentationStandard, Width: width, Height: height, Data: data}, nil
}

// decodeGenericPresentation reads a 32-bit ClipboardFormat; if it is one
// of the well-known bitmap/metafile formats, only a size-prefixed data
// blob follows. Every other value (zero and negative values included) is
// treated as a registered format: a format-data size, a string-format
// name and a size-prefixed data blob follow.
func decodeGenericPresentation(r *byteio.Reader) (*Presentation, error) {
	cf, err := r.I32()
	if err != nil {
		return nil, err
	}
	out := &Presentation{Kind: PresentationGeneric, ClipboardFormat: cf}

	switch cf {
	case cfBitmap, cfDIB, cfEnhMetafile, cfMetafilePict:
		size, err := r.U32()
		if err != nil {
			return nil, err
		}
		data, err := r.Full(int(size))
		if err != nil {
			return nil, err
		}
		out.Data = data
		return out, nil
	}

	// Registered format: a format-data size (ignored beyond skipping),
	// then the string format name, then the actual data blob.
	out.Registered = true
	if _, err := r.U32(); err != nil { // format-data size
		return nil, err
	}
	stringFormat, err := r.Ansi4Prefixed()
	if err != nil {
		return nil, err
	}
	out.StringFormat = stringFormat

	size, err := r.U32()
	if err != nil {
		return nil, err
	}
	data, err := r.Full(int(size))
	if err != nil {
		return nil, err
	}
	out.Data = data
	return out, nil
}
