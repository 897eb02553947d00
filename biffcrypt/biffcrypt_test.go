package biffcrypt

import (
	"crypto/md5"
	"encoding/binary"
	"testing"

	"github.com/cfbkit/oleobj/rc4cipher"
)

func utf16le(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}

func buildValidTuple(password string, docID []byte) (saltData, saltHash []byte) {
	baseKey := deriveBaseKey(password, docID)
	key := make([]byte, 9)
	copy(key, baseKey[:])
	binary.LittleEndian.PutUint32(key[5:], 0)
	c, _ := rc4cipher.New(key)

	saltData = make([]byte, 16)
	for i := range saltData {
		saltData[i] = byte(i * 7)
	}
	sum := md5.Sum(saltData)
	verify := append(append([]byte(nil), saltData...), sum[:]...)
	enc := c.XOR(verify)
	return enc[:16], enc[16:]
}

func TestNewEncryptionKeyAcceptsCorrectPassword(t *testing.T) {
	docID := make([]byte, 16)
	for i := range docID {
		docID[i] = byte(i)
	}
	saltData, saltHash := buildValidTuple(DefaultPassword, docID)

	if _, err := NewEncryptionKey(DefaultPassword, docID, saltData, saltHash); err != nil {
		t.Fatalf("expected valid password to verify, got %v", err)
	}
}

func TestNewEncryptionKeyRejectsWrongPassword(t *testing.T) {
	docID := make([]byte, 16)
	saltData, saltHash := buildValidTuple(DefaultPassword, docID)

	if _, err := NewEncryptionKey("wrong-password", docID, saltData, saltHash); err == nil {
		t.Fatal("expected wrong password to fail verification")
	}
}

func TestStreamXorRoundTrip(t *testing.T) {
	docID := make([]byte, 16)
	saltData, saltHash := buildValidTuple(DefaultPassword, docID)
	key, err := NewEncryptionKey(DefaultPassword, docID, saltData, saltHash)
	if err != nil {
		t.Fatalf("NewEncryptionKey: %v", err)
	}

	plain := make([]byte, 2200) // spans more than two 1024-byte blocks
	for i := range plain {
		plain[i] = byte(i)
	}

	enc, err := NewStream(key, 0)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	cipherText := append([]byte(nil), plain...)
	if err := enc.Xor(cipherText, 0, len(cipherText)); err != nil {
		t.Fatalf("Xor: %v", err)
	}

	dec, err := NewStream(key, 0)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	if err := dec.Xor(cipherText, 0, len(cipherText)); err != nil {
		t.Fatalf("Xor: %v", err)
	}

	for i := range plain {
		if cipherText[i] != plain[i] {
			t.Fatalf("mismatch at byte %d: got %#x want %#x", i, cipherText[i], plain[i])
		}
	}
}
