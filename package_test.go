package oleobj

import (
	"bytes"
	"testing"
)

func buildPackageBlob(fileName, filePath, tempPath string, format PackageFormat, data []byte) []byte {
	var body bytes.Buffer
	body.Write(u16le(0x0002)) // signature
	body.WriteString(fileName)
	body.WriteByte(0)
	body.WriteString(filePath)
	body.WriteByte(0)
	body.Write([]byte{0, 0}) // unused
	body.Write(u16le(uint16(format)))
	body.Write(ansi4Prefixed(tempPath))
	if format == PackageFile {
		body.Write(u32le(uint32(len(data))))
		body.Write(data)
	}

	var blob bytes.Buffer
	blob.Write(u32le(uint32(body.Len())))
	blob.Write(body.Bytes())
	return blob.Bytes()
}

func TestDecodePackageFile(t *testing.T) {
	payload := []byte("hello embedded file")
	blob := buildPackageBlob("report.txt", "C:\\temp\\report.txt", "report.txt", PackageFile, payload)

	pkg, err := DecodePackage(blob)
	if err != nil {
		t.Fatalf("DecodePackage: %v", err)
	}
	if pkg.FileName != "report.txt" {
		t.Fatalf("FileName = %q", pkg.FileName)
	}
	if pkg.Format != PackageFile {
		t.Fatalf("Format = %v, want PackageFile", pkg.Format)
	}
	if !bytes.Equal(pkg.Data, payload) {
		t.Fatalf("Data = %q, want %q", pkg.Data, payload)
	}
}

func TestDecodePackageLink(t *testing.T) {
	blob := buildPackageBlob("link.txt", "C:\\temp\\link.txt", "", PackageLink, nil)

	pkg, err := DecodePackage(blob)
	if err != nil {
		t.Fatalf("DecodePackage: %v", err)
	}
	if pkg.Format != PackageLink {
		t.Fatalf("Format = %v, want PackageLink", pkg.Format)
	}
	if len(pkg.Data) != 0 {
		t.Fatalf("expected no data for a link package, got %d bytes", len(pkg.Data))
	}
}

func TestDecodePackageRejectsBadSignature(t *testing.T) {
	var body bytes.Buffer
	body.Write(u16le(0x0099))
	var blob bytes.Buffer
	blob.Write(u32le(uint32(body.Len())))
	blob.Write(body.Bytes())

	if _, err := DecodePackage(blob.Bytes()); err == nil {
		t.Fatal("expected signature mismatch to fail")
	}
}
