package biffcrypt

import (
	"encoding/binary"

	"github.com/cfbkit/oleobj"
)

// DecryptStream walks a BIFF8 record stream whose FilePass record has
// already been located, decrypting every record payload except the
// never-encrypted ones, and returns a freshly decrypted copy of raw.
//
// filePassEnd is the byte offset immediately after the FilePass record's
// payload (decryption of the stream position begins there; everything
// before it, including the FilePass record itself, is copied unchanged).
func DecryptStream(raw []byte, key *EncryptionKey, filePassEnd int) ([]byte, error) {
	out := append([]byte(nil), raw...)

	s := &Stream{key: key, streamPos: filePassEnd}
	if err := s.RekeyForNextBlock(); err != nil {
		return nil, err
	}
	for i := 0; i < filePassEnd%blockSize; i++ {
		s.cipher.Output()
	}

	pos := filePassEnd
	for pos+4 <= len(out) {
		sid := binary.LittleEndian.Uint16(out[pos:])
		length := int(binary.LittleEndian.Uint16(out[pos+2:]))
		payloadStart := pos + 4
		if payloadStart+length > len(out) {
			return nil, oleobj.Errf(oleobj.CorruptFile, nil, "biffcrypt: record sid %#x length %d exceeds buffer", sid, length)
		}

		s.StartRecord(sid)
		if err := s.SkipTwoBytes(); err != nil {
			return nil, err
		}
		if err := s.SkipTwoBytes(); err != nil {
			return nil, err
		}
		if err := s.xorBytes(out, payloadStart, length); err != nil {
			return nil, err
		}

		pos = payloadStart + length
		if sid == 0x000A { // EOF
			break
		}
	}

	return out, nil
}
