// Package biffcrypt implements the legacy (non-CryptoAPI) BIFF8 RC4
// encryption scheme: key derivation from a FilePass record's DocId/Salt
// tuple, and a record-aware decrypting view over a BIFF stream that
// re-keys every 1024 bytes and skips the handful of "never encrypted"
// record types.
package biffcrypt

import (
	"crypto/md5"
	"encoding/binary"

	"github.com/cfbkit/oleobj"
	"github.com/cfbkit/oleobj/rc4cipher"
)

// DefaultPassword is the password Excel silently falls back to for
// "protected but openable" workbooks.
const DefaultPassword = "VelvetSweatshop"

// EncryptionKey is the per-document RC4 key derived from a password and
// the FilePass record's DocId/SaltData/SaltHash fields.
type EncryptionKey struct {
	docID   []byte
	baseKey [5]byte
}

// NewEncryptionKey derives the base key from password and docID and
// verifies it against saltData/saltHash. It fails with PasswordProtected
// if the password does not match.
func NewEncryptionKey(password string, docID, saltData, saltHash []byte) (*EncryptionKey, error) {
	if len(docID) != 16 {
		return nil, oleobj.Errf(oleobj.CorruptFile, nil, "biffcrypt: DocId must be 16 bytes, got %d", len(docID))
	}
	if len(saltData) != 16 || len(saltHash) != 16 {
		return nil, oleobj.Errf(oleobj.CorruptFile, nil, "biffcrypt: SaltData/SaltHash must be 16 bytes")
	}

	ek := &EncryptionKey{docID: append([]byte(nil), docID...)}
	ek.baseKey = deriveBaseKey(password, docID)

	rc0, err := ek.CreateRC4(0)
	if err != nil {
		return nil, err
	}

	verify := make([]byte, 32)
	copy(verify[:16], saltData)
	copy(verify[16:], saltHash)
	decrypted := rc0.XOR(verify)

	sum := md5.Sum(decrypted[:16])
	for i := 0; i < 16; i++ {
		if sum[i] != decrypted[16+i] {
			return nil, oleobj.Errf(oleobj.PasswordProtected, nil, "biffcrypt: password does not match SaltHash")
		}
	}

	return ek, nil
}

// deriveBaseKey implements the legacy Excel 97-2003 RC4 key derivation:
// H0 = MD5(UTF16LE(password)); truncate to 5 bytes; concatenate with docID
// sixteen times; MD5 again; truncate to 5 bytes.
func deriveBaseKey(password string, docID []byte) [5]byte {
	utf16Pw := make([]byte, 0, len(password)*2)
	for _, r := range password {
		utf16Pw = append(utf16Pw, byte(r), byte(r>>8))
	}
	h0 := md5.Sum(utf16Pw)

	buf := make([]byte, 0, 16*(5+16))
	for i := 0; i < 16; i++ {
		buf = append(buf, h0[:5]...)
		buf = append(buf, docID...)
	}
	hFinal := md5.Sum(buf)

	var out [5]byte
	copy(out[:], hFinal[:5])
	return out
}

// CreateRC4 initializes a fresh RC4 cipher seeded with the base key
// concatenated with the 4-byte little-endian blockIndex.
func (ek *EncryptionKey) CreateRC4(blockIndex uint32) (*rc4cipher.Cipher, error) {
	key := make([]byte, 9)
	copy(key, ek.baseKey[:])
	binary.LittleEndian.PutUint32(key[5:], blockIndex)
	return rc4cipher.New(key)
}
