package oleobj

import "github.com/cfbkit/oleobj/byteio"

// readAnsiSkippingLeadingNuls skips any 0x00 padding bytes some producers
// insert before the Package blob's FileName, then reads the
// null-terminated ANSI string that follows.
func readAnsiSkippingLeadingNuls(r *byteio.Reader) (string, error) {
	return r.AnsiNullTerminatedSkippingLeadingNuls()
}

// PackageFormat distinguishes a Package payload that carries a link from
// one that carries the file's own bytes.
type PackageFormat int

const (
	PackageLink PackageFormat = 1
	PackageFile PackageFormat = 3
)

// Package is the decoded content of an OLE Package blob (the payload of
// \1Ole10Native when its CompObj AnsiUserType is "OLE Package").
type Package struct {
	FileName      string
	FilePath      string
	TemporaryPath string
	Format        PackageFormat
	Data          []byte // only set when Format == PackageFile
}

// DecodePackage decodes a Package blob. The blob's first 4 bytes are the
// total payload length (per the containing \1Ole10Native framing) and are
// skipped here; the caller is expected to have already located the blob.
func DecodePackage(b []byte) (*Package, error) {
	r := byteio.NewReaderFromBytes(b)
	if err := r.Skip(4); err != nil {
		return nil, err
	}

	signature, err := r.U16()
	if err != nil {
		return nil, err
	}
	if signature != 0x0002 {
		return nil, Errf(CorruptFile, nil, "ole: Package signature %#x, want 0x0002", signature)
	}

	fileName, err := readAnsiSkippingLeadingNuls(r)
	if err != nil {
		return nil, err
	}
	filePath, err := r.AnsiNullTerminated()
	if err != nil {
		return nil, err
	}
	if err := r.Skip(2); err != nil { // unused
		return nil, err
	}

	format, err := r.U16()
	if err != nil {
		return nil, err
	}

	tempPath, err := r.Ansi4Prefixed()
	if err != nil {
		return nil, err
	}

	out := &Package{
		FileName:      fileName,
		FilePath:      filePath,
		TemporaryPath: tempPath,
		Format:        PackageFormat(format),
	}

	if out.Format == PackageFile {
		dataSize, err := r.U32()
		if err != nil {
			return nil, err
		}
		data, err := r.Full(int(dataSize))
		if err != nil {
			return nil, err
		}
		out.Data = data
	}

	// Optional UTF-16LE long-form overlay of the three name fields, when
	// trailing bytes remain.
	if longName, err := r.UTF16LE4Prefixed(); err == nil {
		out.FileName = longName
		if longPath, err := r.UTF16LE4Prefixed(); err == nil {
			out.FilePath = longPath
			if longTemp, err := r.UTF16LE4Prefixed(); err == nil {
				out.TemporaryPath = longTemp
			}
		}
	}

	return out, nil
}
