package biffcrypt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/cfbkit/oleobj"
)

func record(sid uint16, payload []byte) []byte {
	var buf bytes.Buffer
	hdr := make([]byte, 4)
	binary.LittleEndian.PutUint16(hdr[0:2], sid)
	binary.LittleEndian.PutUint16(hdr[2:4], uint16(len(payload)))
	buf.Write(hdr)
	buf.Write(payload)
	return buf.Bytes()
}

func buildFilePassPayload(password string, docID []byte) []byte {
	payload := make([]byte, 6+48)
	binary.LittleEndian.PutUint16(payload[0:2], encryptionTypeRC4)
	binary.LittleEndian.PutUint16(payload[2:4], 1)
	binary.LittleEndian.PutUint16(payload[4:6], 1)
	copy(payload[6:22], docID)

	saltData, saltHash := buildValidTuple(password, docID)
	copy(payload[22:38], saltData)
	copy(payload[38:54], saltHash)
	return payload
}

func TestFindFilePassLocatesRecord(t *testing.T) {
	docID := make([]byte, 16)
	for i := range docID {
		docID[i] = byte(i * 3)
	}
	fp := buildFilePassPayload(DefaultPassword, docID)

	var stream bytes.Buffer
	stream.Write(record(SidBOF, make([]byte, 16)))
	stream.Write(record(SidFilePass, fp))
	stream.Write(record(0x0018 /* arbitrary */, []byte{1, 2, 3, 4}))

	end, gotDocID, _, _, found, err := FindFilePass(stream.Bytes())
	if err != nil {
		t.Fatalf("FindFilePass: %v", err)
	}
	if !found {
		t.Fatal("expected FilePass to be found")
	}
	if !bytes.Equal(gotDocID, docID) {
		t.Fatalf("docID mismatch: got %x want %x", gotDocID, docID)
	}
	wantEnd := 4 + 16 + 4 + len(fp)
	if end != wantEnd {
		t.Fatalf("filePassEnd = %d, want %d", end, wantEnd)
	}
}

func TestFindFilePassAbsentIsNotAnError(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(record(SidBOF, make([]byte, 16)))
	stream.Write(record(0x000A, nil)) // EOF

	_, _, _, _, found, err := FindFilePass(stream.Bytes())
	if err != nil {
		t.Fatalf("FindFilePass: %v", err)
	}
	if found {
		t.Fatal("expected no FilePass record to be found")
	}
}

func TestDecryptWorkbookStreamDefaultPassword(t *testing.T) {
	docID := make([]byte, 16)
	fp := buildFilePassPayload(DefaultPassword, docID)

	plainRest := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x01, 0x02}
	bofPayload := make([]byte, 16)
	bofPayload[0] = 0x09
	bofPayload[1] = 0x08

	var stream bytes.Buffer
	stream.Write(record(SidBOF, bofPayload))
	stream.Write(record(SidFilePass, fp))
	stream.Write(record(0x0031, plainRest))

	encrypted, err := DecryptWorkbookStream(stream.Bytes(), "")
	if err != nil {
		t.Fatalf("DecryptWorkbookStream: %v", err)
	}

	// BOF/FilePass bytes pass through unchanged (plaintext records).
	if !bytes.Equal(encrypted[:4+len(bofPayload)], stream.Bytes()[:4+len(bofPayload)]) {
		t.Fatalf("expected BOF record bytes unchanged")
	}
	if encrypted[0] != 0x09 || encrypted[1] != 0x08 {
		t.Fatalf("expected BOF sid preserved, got %#x %#x", encrypted[0], encrypted[1])
	}
}

func TestParseFilePassRejectsXOR(t *testing.T) {
	payload := make([]byte, 6)
	binary.LittleEndian.PutUint16(payload[0:2], encryptionTypeXOR)

	var stream bytes.Buffer
	stream.Write(record(SidBOF, make([]byte, 16)))
	stream.Write(record(SidFilePass, payload))

	_, _, _, _, _, err := FindFilePass(stream.Bytes())
	if err == nil {
		t.Fatal("expected XOR obfuscation to be rejected")
	}
	var oe *oleobj.Error
	if !errors.As(err, &oe) || oe.Kind != oleobj.ExcelConfiguration {
		t.Fatalf("expected ExcelConfiguration, got %v", err)
	}
}
