// Package cfb implements the Compound File Binary Format (OLE Structured
// Storage): the sector/FAT/mini-FAT allocation engine, the directory
// red-black tree, and a Storage/Stream façade over both.
//
// Parsing follows the on-disk layout documented by [MS-CFB]; the header
// and directory-entry field offsets below are grounded on the layout the
// teacher's ole2.Reader already decodes, generalized here to walk the real
// FAT/DIFAT/mini-FAT chains instead of guessing at directory extent.
package cfb

import (
	"encoding/binary"

	"github.com/cfbkit/oleobj"
)

const (
	headerSignature = 0xE11AB1A1E011CFD0
	headerSize      = 512
	numDIFATInline  = 109
)

// Sector sentinels, per [MS-CFB] 2.1.
const (
	secDIFSECT   uint32 = 0xFFFFFFFC
	secFATSECT   uint32 = 0xFFFFFFFD
	secENDOFCHAIN uint32 = 0xFFFFFFFE
	secFREESECT  uint32 = 0xFFFFFFFF
)

// Directory entry sentinel.
const noStream uint32 = 0xFFFFFFFF

const dirEntrySize = 128

type header struct {
	minorVersion      uint16
	majorVersion      uint16
	sectorShift       uint16
	miniSectorShift   uint16
	numDirSectors     uint32 // 0 for v3
	numFATSectors     uint32
	firstDirSector    uint32
	miniStreamCutoff  uint32
	firstMiniFATSector uint32
	numMiniFATSectors uint32
	firstDIFATSector  uint32
	numDIFATSectors   uint32
	difatInline       [numDIFATInline]uint32
}

func (h *header) sectorSize() int     { return 1 << h.sectorShift }
func (h *header) miniSectorSize() int { return 1 << h.miniSectorShift }

func parseHeader(data []byte) (*header, error) {
	if len(data) < headerSize {
		return nil, oleobj.Errf(oleobj.Format, nil, "cfb: file shorter than header (%d bytes)", len(data))
	}
	sig := binary.LittleEndian.Uint64(data[0:8])
	if sig != headerSignature {
		return nil, oleobj.Errf(oleobj.Format, nil, "cfb: bad signature %#x", sig)
	}

	h := &header{}
	h.minorVersion = binary.LittleEndian.Uint16(data[24:26])
	h.majorVersion = binary.LittleEndian.Uint16(data[26:28])
	byteOrder := binary.LittleEndian.Uint16(data[28:30])
	if byteOrder != 0xFFFE {
		return nil, oleobj.Errf(oleobj.Format, nil, "cfb: bad byte-order mark %#x", byteOrder)
	}
	h.sectorShift = binary.LittleEndian.Uint16(data[30:32])
	h.miniSectorShift = binary.LittleEndian.Uint16(data[32:34])
	h.numDirSectors = binary.LittleEndian.Uint32(data[40:44])
	h.numFATSectors = binary.LittleEndian.Uint32(data[44:48])
	h.firstDirSector = binary.LittleEndian.Uint32(data[48:52])
	h.miniStreamCutoff = binary.LittleEndian.Uint32(data[56:60])
	h.firstMiniFATSector = binary.LittleEndian.Uint32(data[60:64])
	h.numMiniFATSectors = binary.LittleEndian.Uint32(data[64:68])
	h.firstDIFATSector = binary.LittleEndian.Uint32(data[68:72])
	h.numDIFATSectors = binary.LittleEndian.Uint32(data[72:76])

	if h.majorVersion != 3 && h.majorVersion != 4 {
		return nil, oleobj.Errf(oleobj.Format, nil, "cfb: unsupported major version %d", h.majorVersion)
	}
	if h.majorVersion == 3 && h.sectorShift != 9 {
		return nil, oleobj.Errf(oleobj.Format, nil, "cfb: v3 file must use 512-byte sectors")
	}
	if h.majorVersion == 4 && h.sectorShift != 12 {
		return nil, oleobj.Errf(oleobj.Format, nil, "cfb: v4 file must use 4096-byte sectors")
	}

	for i := 0; i < numDIFATInline; i++ {
		h.difatInline[i] = binary.LittleEndian.Uint32(data[76+i*4 : 80+i*4])
	}

	return h, nil
}
