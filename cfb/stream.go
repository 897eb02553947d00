package cfb

import "github.com/cfbkit/oleobj"

// Stream is a logical byte sequence owned by a directory entry.
type Stream struct {
	cf    *CompoundFile
	index uint32
}

// Name returns the stream's directory-entry name.
func (s *Stream) Name() string { return s.cf.entries[s.index].name }

// Size returns the stream's declared size in bytes.
func (s *Stream) Size() uint64 { return s.cf.entries[s.index].size }

// GetData returns the stream's full contents as a fresh owned copy.
func (s *Stream) GetData() ([]byte, error) {
	if err := s.cf.checkDisposed(); err != nil {
		return nil, err
	}
	raw, err := s.cf.readEntryData(s.index)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// GetDataRange returns count bytes starting at offset. If fewer than
// count bytes remain, the returned slice is shorter than count (it is
// never padded).
func (s *Stream) GetDataRange(offset int64, count int) ([]byte, error) {
	raw, err := s.GetData()
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset > int64(len(raw)) {
		return nil, oleobj.Errf(oleobj.CorruptFile, nil, "cfb: offset %d out of range for stream of length %d", offset, len(raw))
	}
	end := offset + int64(count)
	if end > int64(len(raw)) {
		end = int64(len(raw))
	}
	return raw[offset:end], nil
}

// SetData replaces the stream's logical contents in memory. The change is
// only persisted to disk by a subsequent CompoundFile.Save.
func (s *Stream) SetData(b []byte) error {
	if err := s.cf.checkDisposed(); err != nil {
		return err
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	s.cf.data[s.index] = cp
	s.cf.entries[s.index].size = uint64(len(cp))
	s.cf.dirty[s.index] = true
	return nil
}
