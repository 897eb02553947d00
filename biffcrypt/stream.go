package biffcrypt

import "github.com/cfbkit/oleobj/rc4cipher"

// Never-encrypted BIFF record SIDs. These are read as plaintext by Excel
// but their bytes still advance the RC4 keystream.
const (
	SidBOF          = 0x0809
	SidInterfaceHdr = 0x00E1
	SidFilePass     = 0x002F
)

const blockSize = 1024

// Stream is a record-aware decrypting view over a BIFF8 byte stream. It
// re-keys every 1024 stream bytes and skips decryption for the
// never-encrypted record SIDs while still consuming their keystream.
type Stream struct {
	key               *EncryptionKey
	cipher            *rc4cipher.Cipher
	streamPos         int
	currentKeyIndex   uint32
	nextBlockStart    int
	skipCurrentRecord bool
}

// NewStream constructs a decrypting view starting at initialOffset (which
// must be less than 1024): it re-keys for block 0, then advances the
// keystream by initialOffset bytes.
func NewStream(key *EncryptionKey, initialOffset int) (*Stream, error) {
	s := &Stream{key: key}
	if err := s.RekeyForNextBlock(); err != nil {
		return nil, err
	}
	for i := 0; i < initialOffset; i++ {
		s.cipher.Output()
	}
	return s, nil
}

// RekeyForNextBlock derives the RC4 instance for the 1024-byte block
// containing streamPos.
func (s *Stream) RekeyForNextBlock() error {
	s.currentKeyIndex = uint32(s.streamPos / blockSize)
	cipher, err := s.key.CreateRC4(s.currentKeyIndex)
	if err != nil {
		return err
	}
	s.cipher = cipher
	s.nextBlockStart = int(s.currentKeyIndex+1) * blockSize
	return nil
}

// StartRecord is called by the BIFF framer before decoding each record's
// payload. It marks BOF/INTERFACEHDR/FilePass as plaintext.
func (s *Stream) StartRecord(sid uint16) {
	switch sid {
	case SidBOF, SidInterfaceHdr, SidFilePass:
		s.skipCurrentRecord = true
	default:
		s.skipCurrentRecord = false
	}
}

// SkipTwoBytes consumes two keystream bytes without applying them; used
// (twice) to step past each record's plaintext 4-byte header after
// StartRecord.
func (s *Stream) SkipTwoBytes() error {
	return s.advance(2, func(byte) {})
}

// Xor decrypts (or, for a skipped record, simply advances past)
// buf[off:off+length], re-keying at every 1024-byte boundary crossed.
func (s *Stream) Xor(buf []byte, off, length int) error {
	return s.xorBytes(buf, off, length)
}

func (s *Stream) advance(length int, consume func(byte)) error {
	for i := 0; i < length; i++ {
		if s.streamPos == s.nextBlockStart {
			if err := s.RekeyForNextBlock(); err != nil {
				return err
			}
		}
		consume(s.cipher.Output())
		s.streamPos++
	}
	return nil
}

// xorBytes decrypts buf[off:off+length] in place, re-keying at 1024-byte
// boundaries; when skipCurrentRecord is set the keystream is consumed but
// the buffer is left untouched.
func (s *Stream) xorBytes(buf []byte, off, length int) error {
	skip := s.skipCurrentRecord
	idx := off
	err := s.advance(length, func(ks byte) {
		if !skip {
			buf[idx] ^= ks
		}
		idx++
	})
	return err
}

// XorByte decrypts (or passes through) a single byte already positioned
// at buf[off].
func (s *Stream) XorByte(buf []byte, off int) error {
	return s.xorBytes(buf, off, 1)
}

// XorShort decrypts 2 little-endian bytes at buf[off:off+2].
func (s *Stream) XorShort(buf []byte, off int) error {
	return s.xorBytes(buf, off, 2)
}

// XorInt decrypts 4 little-endian bytes at buf[off:off+4].
func (s *Stream) XorInt(buf []byte, off int) error {
	return s.xorBytes(buf, off, 4)
}

// XorLong decrypts 8 little-endian bytes at buf[off:off+8].
func (s *Stream) XorLong(buf []byte, off int) error {
	return s.xorBytes(buf, off, 8)
}
