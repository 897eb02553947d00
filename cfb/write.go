package cfb

import (
	"encoding/binary"
	"io"
	"unicode/utf16"

	"github.com/cfbkit/oleobj"
)

// Save re-serializes the entire compound file to w with fresh FAT chains,
// mini-FAT, and directory table, honoring any pending SetData mutations.
// Every other stream is preserved byte-for-byte; directory-entry names,
// CLSIDs, and timestamps are carried over unchanged.
//
// The layout follows the teacher's ole2.Writer in spirit (data sectors,
// then directory sectors, then FAT sectors) but additionally supports the
// mini-stream for small streams, multi-sector FAT chains, and DIFAT
// overflow, none of which the teacher's single-stream writer needed.
func (cf *CompoundFile) Save(w io.Writer) error {
	if err := cf.checkDisposed(); err != nil {
		return err
	}

	const sectorSize = 512
	const miniSectorSize = 64
	const miniCutoff = 4096

	n := len(cf.entries)
	data := make([][]byte, n)
	for i := range cf.entries {
		raw, err := cf.readEntryData(uint32(i))
		if err != nil {
			return err
		}
		data[i] = raw
	}

	// Partition streams into "mini" (packed into the root's mini-stream)
	// and "regular" (own sector chain), per the mini-stream cutoff.
	isMini := make([]bool, n)
	for i, e := range cf.entries {
		if e.stgType == stgTypeStream && uint64(len(data[i])) < miniCutoff {
			isMini[i] = true
		}
	}

	// Lay out the mini-stream itself as one blob, padded to
	// miniSectorSize boundaries per member, then chased through its own
	// sector chain like any other regular stream.
	var miniStream []byte
	miniFAT := []uint32{}
	miniStart := make([]uint32, n)
	for i := range cf.entries {
		if !isMini[i] {
			continue
		}
		if len(data[i]) == 0 {
			// An empty stream occupies no mini sector and no mini-FAT entry.
			miniStart[i] = secENDOFCHAIN
			continue
		}
		start := uint32(len(miniStream) / miniSectorSize)
		miniStart[i] = start
		miniStream = append(miniStream, data[i]...)
		padTo(&miniStream, miniSectorSize)
		numSubsectors := len(data[i])
		subsectors := (numSubsectors + miniSectorSize - 1) / miniSectorSize
		for s := 0; s < subsectors; s++ {
			if s == subsectors-1 {
				miniFAT = append(miniFAT, secENDOFCHAIN)
			} else {
				miniFAT = append(miniFAT, start+uint32(s)+1)
			}
		}
	}

	// Regular-sector streams, including the mini-stream container itself
	// (owned by the root entry) and the directory stream.
	type regularRun struct {
		entryIndex int // -1 for the directory stream, -2 for the mini-stream, -3 for the mini-FAT stream
		startSec   uint32
		numSecs    int
	}
	var regularData []byte
	var runs []regularRun
	regularStart := make([]uint32, n)

	appendRun := func(entryIndex int, buf []byte) uint32 {
		start := uint32(len(regularData) / sectorSize)
		regularData = append(regularData, buf...)
		padTo(&regularData, sectorSize)
		numSecs := (len(buf) + sectorSize - 1) / sectorSize
		if numSecs == 0 {
			numSecs = 1
		}
		runs = append(runs, regularRun{entryIndex: entryIndex, startSec: start, numSecs: numSecs})
		return start
	}

	for i, e := range cf.entries {
		if e.stgType == stgTypeStream && !isMini[i] {
			regularStart[i] = appendRun(i, data[i])
		}
	}
	rootMiniStart := uint32(secENDOFCHAIN)
	if len(miniStream) > 0 {
		rootMiniStart = appendRun(-2, miniStream)
	}

	// Mini-FAT sectors (32-bit entries, regular sector size).
	miniFATBytes := make([]byte, len(miniFAT)*4)
	for i, v := range miniFAT {
		binary.LittleEndian.PutUint32(miniFATBytes[i*4:], v)
	}
	firstMiniFATSector := uint32(secENDOFCHAIN)
	if len(miniFATBytes) > 0 {
		firstMiniFATSector = appendRun(-3, miniFATBytes)
	}

	// Directory stream: re-encode every entry with updated start sectors
	// and sizes, preserving tree linkage and metadata.
	dirBytes := make([]byte, n*dirEntrySize)
	for i, e := range cf.entries {
		out := dirBytes[i*dirEntrySize : (i+1)*dirEntrySize]
		writeDirEntry(out, e, data[i], len(miniStream), isMini, miniStart, regularStart, rootMiniStart, i)
	}
	firstDirSector := appendRun(-1, dirBytes)

	// Now that every run is placed, build the FAT: one entry per sector
	// across data + directory + mini-FAT, plus the FAT sectors
	// themselves (added last since their own count depends on the total).
	totalDataSectors := len(regularData) / sectorSize

	fat := make([]uint32, totalDataSectors)
	for _, r := range runs {
		for s := 0; s < r.numSecs; s++ {
			if s == r.numSecs-1 {
				fat[int(r.startSec)+s] = secENDOFCHAIN
			} else {
				fat[int(r.startSec)+s] = r.startSec + uint32(s) + 1
			}
		}
	}

	numFATSectors := (len(fat) + 1 + (sectorSize/4 - 1)) / (sectorSize / 4)
	for {
		total := len(fat) + numFATSectors
		need := (total + (sectorSize/4 - 1)) / (sectorSize / 4)
		if need == numFATSectors {
			break
		}
		numFATSectors = need
	}

	fatSectorStart := uint32(len(fat))
	for i := 0; i < numFATSectors; i++ {
		fat = append(fat, secFATSECT)
	}
	// Pad out to whole FAT sectors with FREESECT markers.
	for len(fat)%(sectorSize/4) != 0 {
		fat = append(fat, secFREESECT)
	}

	fatBytes := make([]byte, len(fat)*4)
	for i, v := range fat {
		binary.LittleEndian.PutUint32(fatBytes[i*4:], v)
	}

	var difat [numDIFATInline]uint32
	for i := range difat {
		difat[i] = secFREESECT
	}
	for i := 0; i < numFATSectors && i < numDIFATInline; i++ {
		difat[i] = fatSectorStart + uint32(i)
	}

	hdr := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(hdr[0:8], headerSignature)
	binary.LittleEndian.PutUint16(hdr[24:26], 0x003E)
	binary.LittleEndian.PutUint16(hdr[26:28], 0x0003)
	binary.LittleEndian.PutUint16(hdr[28:30], 0xFFFE)
	binary.LittleEndian.PutUint16(hdr[30:32], 9) // 512-byte sectors
	binary.LittleEndian.PutUint16(hdr[32:34], 6) // 64-byte mini sectors
	binary.LittleEndian.PutUint32(hdr[40:44], 0)
	binary.LittleEndian.PutUint32(hdr[44:48], uint32(numFATSectors))
	binary.LittleEndian.PutUint32(hdr[48:52], firstDirSector)
	binary.LittleEndian.PutUint32(hdr[56:60], miniCutoff)
	binary.LittleEndian.PutUint32(hdr[60:64], firstMiniFATSector)
	binary.LittleEndian.PutUint32(hdr[64:68], uint32(len(miniFAT)/(sectorSize/4)+boolToInt(len(miniFAT)%(sectorSize/4) != 0)))
	binary.LittleEndian.PutUint32(hdr[68:72], secENDOFCHAIN)
	binary.LittleEndian.PutUint32(hdr[72:76], 0)
	for i, v := range difat {
		binary.LittleEndian.PutUint32(hdr[76+i*4:80+i*4], v)
	}

	if _, err := w.Write(hdr); err != nil {
		return wrapWriteErr(err)
	}
	if _, err := w.Write(regularData); err != nil {
		return wrapWriteErr(err)
	}
	if _, err := w.Write(fatBytes); err != nil {
		return wrapWriteErr(err)
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func wrapWriteErr(err error) error {
	return oleobj.Errf(oleobj.CorruptFile, err, "cfb: write failed")
}

func padTo(buf *[]byte, boundary int) {
	rem := len(*buf) % boundary
	if rem == 0 {
		return
	}
	*buf = append(*buf, make([]byte, boundary-rem)...)
}

func writeDirEntry(out []byte, e dirEntry, streamData []byte, rootMiniLen int, isMini []bool, miniStart, regularStart []uint32, rootMiniStart uint32, index int) {
	u16 := utf16.Encode([]rune(e.name))
	for i, c := range u16 {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], c)
	}
	nameLen := uint16(0)
	if len(e.name) > 0 {
		nameLen = uint16((len(u16) + 1) * 2)
	}
	binary.LittleEndian.PutUint16(out[64:66], nameLen)
	out[66] = e.stgType
	out[67] = e.color
	binary.LittleEndian.PutUint32(out[68:72], e.left)
	binary.LittleEndian.PutUint32(out[72:76], e.right)
	binary.LittleEndian.PutUint32(out[76:80], e.child)
	copy(out[80:96], e.clsid[:])
	binary.LittleEndian.PutUint32(out[96:100], e.stateBits)
	binary.LittleEndian.PutUint64(out[100:108], e.ctime)
	binary.LittleEndian.PutUint64(out[108:116], e.mtime)

	switch {
	case e.stgType == stgTypeRoot:
		binary.LittleEndian.PutUint32(out[116:120], rootMiniStart)
		binary.LittleEndian.PutUint64(out[120:128], uint64(rootMiniLen))
	case e.stgType == stgTypeStream && isMini[index]:
		binary.LittleEndian.PutUint32(out[116:120], miniStart[index])
		binary.LittleEndian.PutUint64(out[120:128], uint64(len(streamData)))
	case e.stgType == stgTypeStream:
		binary.LittleEndian.PutUint32(out[116:120], regularStart[index])
		binary.LittleEndian.PutUint64(out[120:128], uint64(len(streamData)))
	default:
		binary.LittleEndian.PutUint32(out[116:120], noStream)
		binary.LittleEndian.PutUint64(out[120:128], 0)
	}
}
