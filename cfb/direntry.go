package cfb

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/cfbkit/oleobj"
	"github.com/cfbkit/oleobj/byteio"
)

// Object types a directory entry can carry.
const (
	stgTypeInvalid = 0
	stgTypeStorage = 1
	stgTypeStream  = 2
	stgTypeRoot    = 5
)

type dirEntry struct {
	name         string
	nameLenBytes uint16
	stgType      byte
	color        byte
	left         uint32
	right        uint32
	child        uint32
	clsid        [16]byte
	stateBits    uint32
	ctime        uint64
	mtime        uint64
	startSector  uint32
	size         uint64
}

func parseDirectoryEntries(dirStream []byte) ([]dirEntry, error) {
	n := len(dirStream) / dirEntrySize
	entries := make([]dirEntry, n)
	for i := 0; i < n; i++ {
		e := dirStream[i*dirEntrySize : (i+1)*dirEntrySize]

		nameLen := binary.LittleEndian.Uint16(e[64:66])
		var name string
		if nameLen >= 2 {
			if nameLen > 64 {
				return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: directory entry %d name length %d exceeds 32 UTF-16 units", i, nameLen)
			}
			name = byteio.DecodeUTF16LE(e[0:nameLen])
		}

		entries[i] = dirEntry{
			name:         name,
			nameLenBytes: nameLen,
			stgType:      e[66],
			color:        e[67],
			left:         binary.LittleEndian.Uint32(e[68:72]),
			right:        binary.LittleEndian.Uint32(e[72:76]),
			child:        binary.LittleEndian.Uint32(e[76:80]),
			stateBits:    binary.LittleEndian.Uint32(e[96:100]),
			ctime:        binary.LittleEndian.Uint64(e[100:108]),
			mtime:        binary.LittleEndian.Uint64(e[108:116]),
			startSector:  binary.LittleEndian.Uint32(e[116:120]),
			size:         binary.LittleEndian.Uint64(e[120:128]),
		}
		copy(entries[i].clsid[:], e[80:96])
	}
	return entries, nil
}

// upperUTF16Key returns the comparison key used for directory ordering:
// (nameLength in bytes, UTF-16 code units with ASCII a-z upper-cased),
// per [MS-CFB] 2.6.4.
func upperUTF16Key(name string) (int, []uint16) {
	u16 := utf16.Encode([]rune(name))
	upper := make([]uint16, len(u16))
	for i, c := range u16 {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper[i] = c
	}
	return len(u16)*2 + 2, upper // +2 accounts for the NUL terminator
}

// compareNames implements the directory tree's BST ordering.
func compareNames(a, b string) int {
	lenA, keyA := upperUTF16Key(a)
	lenB, keyB := upperUTF16Key(b)
	if lenA != lenB {
		if lenA < lenB {
			return -1
		}
		return 1
	}
	for i := range keyA {
		if keyA[i] != keyB[i] {
			if keyA[i] < keyB[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
