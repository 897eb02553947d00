package biffcrypt

import (
	"encoding/binary"

	"github.com/cfbkit/oleobj"
)

// FilePass wEncryptionType values. parseFilePassPayload accepts only the
// RC4 value with the legacy version pair; XOR obfuscation and the
// CryptoAPI/Agile version pairs fail with ExcelConfiguration rather than
// being misread as the legacy scheme.
const (
	encryptionTypeXOR = 0x0000
	encryptionTypeRC4 = 0x0001
)

// DecryptWorkbookStream scans raw (the full byte contents of a Workbook
// stream) for a FilePass record. If none is found, raw is returned
// unchanged — the workbook is not encrypted. If one is found and
// describes the legacy (non-CryptoAPI) RC4 scheme, the stream is
// decrypted with password (DefaultPassword if password is empty) and the
// decrypted copy is returned. Any other encryption scheme fails with
// ExcelConfiguration; a wrong password fails with PasswordProtected.
func DecryptWorkbookStream(raw []byte, password string) ([]byte, error) {
	filePassEnd, docID, saltData, saltHash, found, err := FindFilePass(raw)
	if err != nil {
		return nil, err
	}
	if !found {
		return raw, nil
	}
	if password == "" {
		password = DefaultPassword
	}

	key, err := NewEncryptionKey(password, docID, saltData, saltHash)
	if err != nil {
		return nil, err
	}
	return DecryptStream(raw, key, filePassEnd)
}

// FindFilePass walks the plaintext record-header framing of a BIFF8
// stream from byte 0 looking for a FilePass record (SID 0x002F). Record
// headers and the BOF/InterfaceHdr/FilePass payloads are always stored in
// plaintext, so this walk never needs a key. Returns found=false if EOF is
// reached (or the EOF record 0x000A is seen) before a FilePass record
// appears.
func FindFilePass(raw []byte) (filePassEnd int, docID, saltData, saltHash []byte, found bool, err error) {
	pos := 0
	first := true
	for pos+4 <= len(raw) {
		sid := binary.LittleEndian.Uint16(raw[pos:])
		length := int(binary.LittleEndian.Uint16(raw[pos+2:]))
		payloadStart := pos + 4
		payloadEnd := payloadStart + length
		if payloadEnd > len(raw) {
			return 0, nil, nil, nil, false, oleobj.Errf(oleobj.CorruptFile, nil, "biffcrypt: record sid %#x length %d exceeds buffer", sid, length)
		}
		if first {
			if sid != SidBOF {
				return 0, nil, nil, nil, false, oleobj.Errf(oleobj.CorruptFile, nil, "biffcrypt: first workbook record is sid %#x, want BOF", sid)
			}
			first = false
		}

		if sid == SidFilePass {
			d, sd, sh, perr := parseFilePassPayload(raw[payloadStart:payloadEnd])
			if perr != nil {
				return 0, nil, nil, nil, false, perr
			}
			return payloadEnd, d, sd, sh, true, nil
		}

		pos = payloadEnd
		if sid == 0x000A { // EOF: no FilePass seen, stream is not encrypted
			break
		}
	}
	return 0, nil, nil, nil, false, nil
}

// parseFilePassPayload decodes the legacy RC4 FilePass layout:
// u16 wEncryptionType, u16 vMajor, u16 vMinor, 16-byte DocId, 16-byte
// SaltData, 16-byte SaltHash. Any other encryption type or version pair is
// rejected with ExcelConfiguration (XOR obfuscation and the CryptoAPI/
// Agile schemes are explicitly out of scope, per spec).
func parseFilePassPayload(payload []byte) (docID, saltData, saltHash []byte, err error) {
	if len(payload) < 6 {
		return nil, nil, nil, oleobj.Errf(oleobj.CorruptFile, nil, "biffcrypt: FilePass record too short")
	}
	encType := binary.LittleEndian.Uint16(payload[0:2])
	if encType == encryptionTypeXOR {
		return nil, nil, nil, oleobj.Errf(oleobj.ExcelConfiguration, nil, "biffcrypt: XOR obfuscation is not supported")
	}
	if encType != encryptionTypeRC4 {
		return nil, nil, nil, oleobj.Errf(oleobj.ExcelConfiguration, nil, "biffcrypt: unknown FilePass encryption type %#x", encType)
	}

	vMajor := binary.LittleEndian.Uint16(payload[2:4])
	vMinor := binary.LittleEndian.Uint16(payload[4:6])
	if vMajor != 1 || vMinor != 1 {
		return nil, nil, nil, oleobj.Errf(oleobj.ExcelConfiguration, nil, "biffcrypt: unsupported RC4 scheme version %d.%d (CryptoAPI/Agile not supported)", vMajor, vMinor)
	}

	const headerLen = 6
	const tupleLen = 16 * 3
	if len(payload) < headerLen+tupleLen {
		return nil, nil, nil, oleobj.Errf(oleobj.CorruptFile, nil, "biffcrypt: FilePass record too short for legacy RC4 tuple")
	}

	docID = append([]byte(nil), payload[headerLen:headerLen+16]...)
	saltData = append([]byte(nil), payload[headerLen+16:headerLen+32]...)
	saltHash = append([]byte(nil), payload[headerLen+32:headerLen+48]...)
	return docID, saltData, saltHash, nil
}
