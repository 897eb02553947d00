package cfb

import "github.com/cfbkit/oleobj"

// CopySubtree builds a brand-new, standalone CompoundFile whose root is a
// copy of root (re-typed as the root entry regardless of root's original
// type) and whose descendants are a full copy of root's own child tree:
// names, CLSIDs, timestamps, tree linkage and stream bytes are preserved.
// This backs the extraction policy's re-serialization of a nested
// WordDocument/Workbook/PowerPoint Document storage into its own
// standalone compound file.
func CopySubtree(root *Storage) (*CompoundFile, error) {
	if err := root.cf.checkDisposed(); err != nil {
		return nil, err
	}

	var oldIndices []uint32
	oldToNew := map[uint32]uint32{}

	var collect func(idx uint32)
	collect = func(idx uint32) {
		if idx == noStream {
			return
		}
		if _, seen := oldToNew[idx]; seen {
			return
		}
		oldToNew[idx] = uint32(len(oldIndices))
		oldIndices = append(oldIndices, idx)

		e := root.cf.entries[idx]
		collect(e.left)
		collect(e.right)
		if e.stgType == stgTypeStorage || e.stgType == stgTypeRoot {
			collect(e.child)
		}
	}
	// The subtree root's own left/right links point at its siblings in the
	// parent's tree, which are not part of the copy; only its child tree is.
	oldToNew[root.index] = 0
	oldIndices = append(oldIndices, root.index)
	if t := root.cf.entries[root.index].stgType; t == stgTypeStorage || t == stgTypeRoot {
		collect(root.cf.entries[root.index].child)
	}

	remap := func(idx uint32) uint32 {
		if idx == noStream {
			return noStream
		}
		n, ok := oldToNew[idx]
		if !ok {
			return noStream
		}
		return n
	}

	newEntries := make([]dirEntry, len(oldIndices))
	newData := make([][]byte, len(oldIndices))
	for newIdx, oldIdx := range oldIndices {
		e := root.cf.entries[oldIdx]
		copyE := e
		copyE.left = remap(e.left)
		copyE.right = remap(e.right)
		copyE.child = remap(e.child)
		if uint32(newIdx) == 0 {
			copyE.stgType = stgTypeRoot
			copyE.name = "Root Entry"
		}
		newEntries[newIdx] = copyE

		if e.stgType == stgTypeStream {
			raw, err := root.cf.readEntryData(oldIdx)
			if err != nil {
				return nil, err
			}
			cp := make([]byte, len(raw))
			copy(cp, raw)
			newData[newIdx] = cp
		} else {
			// Storages carry no stream bytes of their own; pre-filling
			// with an empty slice keeps Save from ever dereferencing the
			// (nil, since this CompoundFile was never Open'd) sector
			// reader for a non-stream entry.
			newData[newIdx] = []byte{}
		}
	}

	if len(newEntries) == 0 {
		return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: CopySubtree: empty subtree")
	}

	cf := &CompoundFile{
		h:       &header{sectorShift: 9, miniSectorShift: 6, miniStreamCutoff: 4096},
		entries: newEntries,
		data:    newData,
		dirty:   make([]bool, len(newEntries)),
	}
	return cf, nil
}
