package cfb

import (
	"github.com/cfbkit/oleobj"
)

// CompoundFile is a parsed OLE Structured Storage container. It owns every
// directory entry and the backing sector arena; every Storage and Stream
// handed out is a lightweight view indexed into that arena.
type CompoundFile struct {
	h          *header
	sr         *sectorReader
	fat        []uint32
	miniFAT    []uint32
	miniStream []byte
	entries    []dirEntry
	data       [][]byte // entry i's decoded bytes; Open fills it for every stream, SetData replaces it
	dirty      []bool
	disposed   bool
}

// Open parses data as a compound file, building the FAT, mini-FAT and
// directory tree and reading every stream's sector chain eagerly. It fails with Format on bad magic or
// unsupported version, and with CorruptFile on any internal
// inconsistency (short sector chain, a cycle, a directory entry with an
// over-length name).
func Open(data []byte) (*CompoundFile, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	sr := newSectorReader(data, h.sectorSize())

	fat, err := buildFAT(sr, h)
	if err != nil {
		return nil, err
	}

	miniFAT, err := buildMiniFAT(sr, fat, h)
	if err != nil {
		return nil, err
	}

	dirStream, err := chainSectors(sr, fat, h.firstDirSector)
	if err != nil {
		return nil, err
	}
	entries, err := parseDirectoryEntries(dirStream)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 || entries[0].stgType != stgTypeRoot {
		return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: directory entry 0 is not the root entry")
	}

	cf := &CompoundFile{
		h:       h,
		sr:      sr,
		fat:     fat,
		miniFAT: miniFAT,
		entries: entries,
		data:    make([][]byte, len(entries)),
		dirty:   make([]bool, len(entries)),
	}

	if entries[0].size > 0 {
		miniStream, err := chainSectors(sr, fat, entries[0].startSector)
		if err != nil {
			return nil, err
		}
		cf.miniStream = miniStream
	}

	// Walk every stream's sector chain now, so a looping or truncated
	// chain fails Open rather than a later read.
	for i, e := range entries {
		if e.stgType != stgTypeStream {
			continue
		}
		if _, err := cf.readEntryData(uint32(i)); err != nil {
			return nil, err
		}
	}

	return cf, nil
}

// Root returns the root storage.
func (cf *CompoundFile) Root() *Storage {
	return &Storage{cf: cf, index: 0}
}

func (cf *CompoundFile) checkDisposed() error {
	if cf.disposed {
		return oleobj.Errf(oleobj.Disposed, nil, "cfb: compound file already closed")
	}
	return nil
}

// Close invalidates every outstanding Storage/Stream handle.
func (cf *CompoundFile) Close() {
	cf.disposed = true
}

func (cf *CompoundFile) readEntryData(index uint32) ([]byte, error) {
	if cf.data[index] != nil {
		return cf.data[index], nil
	}
	e := cf.entries[index]
	raw, err := readStream(cf.sr, cf.fat, cf.miniFAT, cf.miniStream, cf.h, e.startSector, e.size)
	if err != nil {
		return nil, err
	}
	cf.data[index] = raw
	return raw, nil
}
