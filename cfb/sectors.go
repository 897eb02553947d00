package cfb

import (
	"encoding/binary"

	"github.com/cfbkit/oleobj"
)

// sectorReader gives random access to the sectors of a compound file,
// addressed by zero-based sector number (sector 0 begins right after the
// 512-byte header, matching [MS-CFB]'s "+1" sector offset convention).
type sectorReader struct {
	data []byte
	size int
}

func newSectorReader(data []byte, sectorSize int) *sectorReader {
	return &sectorReader{data: data, size: sectorSize}
}

func (sr *sectorReader) numSectors() int {
	if len(sr.data) <= headerSize {
		return 0
	}
	return (len(sr.data) - headerSize) / sr.size
}

func (sr *sectorReader) sector(n uint32) ([]byte, error) {
	start := headerSize + int(n)*sr.size
	end := start + sr.size
	if n == noStream || start < headerSize || end > len(sr.data) {
		return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: sector %d out of range", n)
	}
	return sr.data[start:end], nil
}

// buildFAT walks the 109 inline DIFAT entries plus any DIFAT sector chain
// to locate every FAT sector, then concatenates them into one array of
// next-sector pointers.
func buildFAT(sr *sectorReader, h *header) ([]uint32, error) {
	var fatSectorNums []uint32
	for _, s := range h.difatInline {
		if s != secFREESECT {
			fatSectorNums = append(fatSectorNums, s)
		}
	}

	if h.numDIFATSectors > 0 {
		difatSec := h.firstDIFATSector
		seen := map[uint32]bool{}
		for i := uint32(0); i < h.numDIFATSectors; i++ {
			if difatSec == secENDOFCHAIN || difatSec == secFREESECT {
				break
			}
			if seen[difatSec] {
				return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: DIFAT chain cycle at sector %d", difatSec)
			}
			seen[difatSec] = true

			sec, err := sr.sector(difatSec)
			if err != nil {
				return nil, err
			}
			entriesPerSector := sr.size/4 - 1
			for j := 0; j < entriesPerSector; j++ {
				v := binary.LittleEndian.Uint32(sec[j*4 : j*4+4])
				if v != secFREESECT {
					fatSectorNums = append(fatSectorNums, v)
				}
			}
			difatSec = binary.LittleEndian.Uint32(sec[entriesPerSector*4:])
		}
	}

	fat := make([]uint32, 0, len(fatSectorNums)*sr.size/4)
	for _, secNum := range fatSectorNums {
		sec, err := sr.sector(secNum)
		if err != nil {
			return nil, err
		}
		for i := 0; i+4 <= len(sec); i += 4 {
			fat = append(fat, binary.LittleEndian.Uint32(sec[i:i+4]))
		}
	}
	return fat, nil
}

// buildMiniFAT chases firstMiniFATSector through the regular FAT.
func buildMiniFAT(sr *sectorReader, fat []uint32, h *header) ([]uint32, error) {
	if h.numMiniFATSectors == 0 {
		return nil, nil
	}
	return readChainAsUint32(sr, fat, h.firstMiniFATSector)
}

// chainSectors returns the raw concatenated bytes of the sector chain
// starting at start, detecting cycles by bounding the walk at the total
// sector count.
func chainSectors(sr *sectorReader, fat []uint32, start uint32) ([]byte, error) {
	var out []byte
	visited := map[uint32]bool{}
	s := start
	limit := len(fat) + 1
	for s != secENDOFCHAIN && s != secFREESECT {
		if visited[s] {
			return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: sector chain cycle at sector %d", s)
		}
		if len(visited) > limit {
			return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: sector chain exceeds file sector count")
		}
		visited[s] = true

		sec, err := sr.sector(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sec...)

		if int(s) >= len(fat) {
			return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: sector %d has no FAT entry", s)
		}
		s = fat[s]
	}
	return out, nil
}

func readChainAsUint32(sr *sectorReader, fat []uint32, start uint32) ([]uint32, error) {
	raw, err := chainSectors(sr, fat, start)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(raw)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return out, nil
}

// readStream walks the appropriate allocation table for a directory
// entry's starting sector and returns exactly size bytes (or fails with
// corrupt-file on a short or cyclic chain).
func readStream(sr *sectorReader, fat []uint32, miniFAT []uint32, miniStream []byte, h *header, startSector uint32, size uint64) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	if size < uint64(h.miniStreamCutoff) {
		raw, err := chainSectorsGeneric(miniFAT, miniStream, h.miniSectorSize(), startSector)
		if err != nil {
			return nil, err
		}
		if uint64(len(raw)) < size {
			return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: mini-stream shorter than declared size")
		}
		return raw[:size], nil
	}

	raw, err := chainSectors(sr, fat, startSector)
	if err != nil {
		return nil, err
	}
	if uint64(len(raw)) < size {
		return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: stream shorter than declared size")
	}
	return raw[:size], nil
}

// chainSectorsGeneric walks a chain of fixed-size sub-sectors packed
// inside an in-memory buffer (used for the mini-stream, which lives
// inside the root entry's regular-sector payload).
func chainSectorsGeneric(fat []uint32, data []byte, secSize int, start uint32) ([]byte, error) {
	var out []byte
	visited := map[uint32]bool{}
	s := start
	limit := len(fat) + 1
	for s != secENDOFCHAIN && s != secFREESECT {
		if visited[s] {
			return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: mini sector chain cycle at sector %d", s)
		}
		if len(visited) > limit {
			return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: mini sector chain exceeds table size")
		}
		visited[s] = true

		start := int(s) * secSize
		end := start + secSize
		if start < 0 || end > len(data) {
			return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: mini sector %d out of range", s)
		}
		out = append(out, data[start:end]...)

		if int(s) >= len(fat) {
			return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: mini sector %d has no mini-FAT entry", s)
		}
		s = fat[s]
	}
	return out, nil
}
