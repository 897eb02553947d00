package extract

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"unicode/utf16"

	"github.com/cfbkit/oleobj/cfb"
)

// --- in-memory compound-file fixture builder -------------------------------
//
// extract lives in a different package than cfb, so it can only reach the
// public cfb.Open API; fixtures are assembled byte-by-byte the same way
// cfb's own tests do, generalized here to an arbitrary tree of
// streams/storages.

const (
	fxHeaderSig     = 0xE11AB1A1E011CFD0
	fxStgTypeStorage = 1
	fxStgTypeStream  = 2
	fxStgTypeRoot    = 5
)

const (
	fxNoStream      uint32 = 0xFFFFFFFF
	fxSecFATSECT    uint32 = 0xFFFFFFFD
	fxSecENDOFCHAIN uint32 = 0xFFFFFFFE
)

type fixtureNode struct {
	name     string
	isStorage bool
	data     []byte
	children []fixtureNode
}

type flatFixtureEntry struct {
	name      string
	isStorage bool
	data      []byte
	left      uint32
	right     uint32
	child     uint32
}

// fixtureCompare mirrors cfb's own directory-ordering comparator
// ((length, upper-cased UTF-16 units)); duplicated here since the real one
// is unexported.
func fixtureCompare(a, b string) int {
	keyOf := func(s string) (int, []uint16) {
		u16 := utf16.Encode([]rune(s))
		upper := make([]uint16, len(u16))
		for i, c := range u16 {
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			upper[i] = c
		}
		return len(u16)*2 + 2, upper
	}
	lenA, keyA := keyOf(a)
	lenB, keyB := keyOf(b)
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

// buildFixtureCFB assembles a minimal v3 compound file in memory containing
// the given tree of streams/storages under the root.
func buildFixtureCFB(t *testing.T, children []fixtureNode) []byte {
	t.Helper()

	flat := []*flatFixtureEntry{{name: "Root Entry", isStorage: true, left: fxNoStream, right: fxNoStream, child: fxNoStream}}
	childIdx := map[int][]int{}

	var addNodes func(nodes []fixtureNode) []int
	addNodes = func(nodes []fixtureNode) []int {
		idxs := make([]int, 0, len(nodes))
		for _, n := range nodes {
			flat = append(flat, &flatFixtureEntry{
				name: n.name, isStorage: n.isStorage, data: n.data,
				left: fxNoStream, right: fxNoStream, child: fxNoStream,
			})
			idx := len(flat) - 1
			idxs = append(idxs, idx)
			if n.isStorage {
				childIdx[idx] = addNodes(n.children)
			}
		}
		return idxs
	}
	childIdx[0] = addNodes(children)

	for parent, idxs := range childIdx {
		sort.Slice(idxs, func(i, j int) bool {
			return fixtureCompare(flat[idxs[i]].name, flat[idxs[j]].name) < 0
		})
		for i, idx := range idxs {
			if i+1 < len(idxs) {
				flat[idx].right = uint32(idxs[i+1])
			}
		}
		if len(idxs) > 0 {
			flat[parent].child = uint32(idxs[0])
		}
	}

	nEntries := len(flat)
	dirSectors := (nEntries + 3) / 4

	dataSectorOf := make([]uint32, nEntries)
	nextDataSector := uint32(1 + dirSectors)
	for i, e := range flat {
		if !e.isStorage {
			if len(e.data) > 512 {
				t.Fatalf("fixture stream %q: %d bytes exceeds the single-sector fixture limit", e.name, len(e.data))
			}
			dataSectorOf[i] = nextDataSector
			nextDataSector++
		}
	}

	var buf bytes.Buffer

	header := make([]byte, 512)
	binary.LittleEndian.PutUint64(header[0:], fxHeaderSig)
	binary.LittleEndian.PutUint16(header[24:], 0x003E)
	binary.LittleEndian.PutUint16(header[26:], 0x0003)
	binary.LittleEndian.PutUint16(header[28:], 0xFFFE)
	binary.LittleEndian.PutUint16(header[30:], 0x0009) // 512-byte sectors
	binary.LittleEndian.PutUint16(header[32:], 0x0006)
	binary.LittleEndian.PutUint32(header[44:], 1) // 1 FAT sector
	binary.LittleEndian.PutUint32(header[48:], 1) // directory starts at sector 1
	binary.LittleEndian.PutUint32(header[56:], 0) // cutoff 0: no fixture needs the mini-stream
	binary.LittleEndian.PutUint32(header[68:], 0xFFFFFFFE)
	for i := 76; i < 512; i++ {
		header[i] = 0xFF
	}
	binary.LittleEndian.PutUint32(header[76:], 0) // FAT lives in sector 0
	buf.Write(header)

	fat := make([]byte, 512)
	binary.LittleEndian.PutUint32(fat[0:], fxSecFATSECT)
	for i := 0; i < dirSectors; i++ {
		sec := 1 + i
		if i == dirSectors-1 {
			binary.LittleEndian.PutUint32(fat[sec*4:], fxSecENDOFCHAIN)
		} else {
			binary.LittleEndian.PutUint32(fat[sec*4:], uint32(sec+1))
		}
	}
	for i, e := range flat {
		if !e.isStorage {
			binary.LittleEndian.PutUint32(fat[int(dataSectorOf[i])*4:], fxSecENDOFCHAIN)
		}
	}
	buf.Write(fat)

	dirBytes := make([]byte, dirSectors*512)
	for i, e := range flat {
		off := i * 128
		nameUTF16 := utf16.Encode([]rune(e.name + "\x00"))
		for j, r := range nameUTF16 {
			binary.LittleEndian.PutUint16(dirBytes[off+j*2:], r)
		}
		binary.LittleEndian.PutUint16(dirBytes[off+64:], uint16(len(nameUTF16)*2))
		switch {
		case i == 0:
			dirBytes[off+66] = fxStgTypeRoot
		case e.isStorage:
			dirBytes[off+66] = fxStgTypeStorage
		default:
			dirBytes[off+66] = fxStgTypeStream
		}
		binary.LittleEndian.PutUint32(dirBytes[off+68:], e.left)
		binary.LittleEndian.PutUint32(dirBytes[off+72:], e.right)
		binary.LittleEndian.PutUint32(dirBytes[off+76:], e.child)
		if !e.isStorage {
			binary.LittleEndian.PutUint32(dirBytes[off+116:], dataSectorOf[i])
			binary.LittleEndian.PutUint64(dirBytes[off+120:], uint64(len(e.data)))
		}
	}
	buf.Write(dirBytes)

	for _, e := range flat {
		if e.isStorage {
			continue
		}
		sector := make([]byte, 512)
		copy(sector, e.data)
		buf.Write(sector)
	}

	return buf.Bytes()
}

func openFixtureRoot(t *testing.T, children []fixtureNode) *cfb.Storage {
	t.Helper()
	data := buildFixtureCFB(t, children)
	cf, err := cfb.Open(data)
	if err != nil {
		t.Fatalf("cfb.Open: %v", err)
	}
	return cf.Root()
}

// --- fake collaborators ------------------------------------------------

type fakeWriter struct {
	writes map[string][]byte
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{writes: map[string][]byte{}}
}

func (w *fakeWriter) Write(path string, data []byte) (string, error) {
	if _, collide := w.writes[path]; collide {
		path = path + " (1)"
	}
	w.writes[path] = append([]byte(nil), data...)
	return path, nil
}

type fakeLogger struct {
	messages []string
}

func (l *fakeLogger) Write(message string) {
	l.messages = append(l.messages, message)
}

// --- byte-blob helpers for OLE record fixtures --------------------------

func u16le(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func ansi4Prefixed(s string) []byte {
	var buf bytes.Buffer
	buf.Write(u32le(uint32(len(s))))
	buf.WriteString(s)
	return buf.Bytes()
}

// compObjBlob builds a minimal CompObj stream advertising ansiUserType,
// matching the layout oleobj.DecodeCompObj expects.
func compObjBlob(ansiUserType string) []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, 28))
	buf.Write(ansi4Prefixed(ansiUserType))
	buf.Write(u32le(0))
	buf.Write(ansi4Prefixed(""))
	return buf.Bytes()
}

// biffRecord frames a BIFF8 record: (sid, length, payload).
func biffRecord(sid uint16, payload []byte) []byte {
	var buf bytes.Buffer
	buf.Write(u16le(sid))
	buf.Write(u16le(uint16(len(payload))))
	buf.Write(payload)
	return buf.Bytes()
}

// hiddenWorkbookStream builds a BOF + WINDOW1 record pair with the
// WINDOW1 hidden bit set, the minimum a Workbook stream needs for
// xlsvis.SetVisible to find and clear it.
func hiddenWorkbookStream() []byte {
	const sidBOF = 0x0809
	const sidWindow1 = 0x003D

	var payload bytes.Buffer
	payload.Write(u16le(0)) // xWn
	payload.Write(u16le(0)) // yWn
	payload.Write(u16le(0)) // dxWn
	payload.Write(u16le(0)) // dyWn
	payload.Write(u16le(0x0001)) // grbit, hidden bit set

	var out bytes.Buffer
	out.Write(biffRecord(sidBOF, nil))
	out.Write(biffRecord(sidWindow1, payload.Bytes()))
	return out.Bytes()
}

// minimalFIBBytes builds a WordDocument stream prefix long enough to
// pass validateNestedWordDocument's length check, with a correct wIdent.
func minimalFIBBytes() []byte {
	b := make([]byte, 150)
	binary.LittleEndian.PutUint16(b[0:], 0xA5EC) // wIdent
	return b
}

// --- tests ---------------------------------------------------------------

func TestExtractContentsStream(t *testing.T) {
	root := openFixtureRoot(t, []fixtureNode{
		{name: "CONTENTS", data: []byte("raw payload bytes")},
	})

	writer := newFakeWriter()
	logger := &fakeLogger{}
	outputs, err := ExtractEmbeddedObjects(root, "out", "", "", writer, logger)
	if err != nil {
		t.Fatalf("ExtractEmbeddedObjects: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("outputs = %v, want 1 entry", outputs)
	}
	got, ok := writer.writes["out/Embedded object"]
	if !ok {
		t.Fatalf("writes = %v, missing default name", writer.writes)
	}
	if string(got) != "raw payload bytes" {
		t.Fatalf("data = %q", got)
	}
}

func TestExtractContentsStreamHonorsDocumentOlePrefix(t *testing.T) {
	payload := append([]byte("%DocumentOle:report.pdf%"), []byte("pdf bytes")...)
	root := openFixtureRoot(t, []fixtureNode{
		{name: "CONTENTS", data: payload},
	})

	writer := newFakeWriter()
	outputs, err := ExtractEmbeddedObjects(root, "out", "", "", writer, nil)
	if err != nil {
		t.Fatalf("ExtractEmbeddedObjects: %v", err)
	}
	if len(outputs) != 1 || outputs[0] != "out/report.pdf" {
		t.Fatalf("outputs = %v, want [out/report.pdf]", outputs)
	}
	if string(writer.writes["out/report.pdf"]) != "pdf bytes" {
		t.Fatalf("data = %q", writer.writes["out/report.pdf"])
	}
}

func TestExtractOle10NativePBrush(t *testing.T) {
	bmp := append(u32le(4), []byte("BMP!")...)
	root := openFixtureRoot(t, []fixtureNode{
		{name: "\x01Ole10Native", data: bmp},
		{name: "\x01CompObj", data: compObjBlob("PBrush")},
	})

	writer := newFakeWriter()
	outputs, err := ExtractEmbeddedObjects(root, "out", "", "", writer, nil)
	if err != nil {
		t.Fatalf("ExtractEmbeddedObjects: %v", err)
	}
	if len(outputs) != 1 || outputs[0] != "out/Embedded PBrush image.bmp" {
		t.Fatalf("outputs = %v", outputs)
	}
	if string(writer.writes["out/Embedded PBrush image.bmp"]) != "BMP!" {
		t.Fatalf("data = %q", writer.writes["out/Embedded PBrush image.bmp"])
	}
}

func TestExtractOle10NativeSkippedUserTypeProducesNoOutputAndNoError(t *testing.T) {
	root := openFixtureRoot(t, []fixtureNode{
		{name: "\x01Ole10Native", data: []byte{1, 2, 3, 4}},
		{name: "\x01CompObj", data: compObjBlob("Pakket")},
	})

	writer := newFakeWriter()
	logger := &fakeLogger{}
	outputs, err := ExtractEmbeddedObjects(root, "out", "", "", writer, logger)
	if err != nil {
		t.Fatalf("ExtractEmbeddedObjects: %v", err)
	}
	if len(outputs) != 0 {
		t.Fatalf("outputs = %v, want none", outputs)
	}
	if len(writer.writes) != 0 {
		t.Fatalf("writes = %v, want none", writer.writes)
	}
	if len(logger.messages) != 0 {
		t.Fatalf("messages = %v, want none logged for a deliberately-skipped type", logger.messages)
	}
}

func TestExtractNestedWordDocumentReserializes(t *testing.T) {
	root := openFixtureRoot(t, []fixtureNode{
		{name: "WordDocument", data: minimalFIBBytes()},
	})

	writer := newFakeWriter()
	outputs, err := ExtractEmbeddedObjects(root, "out", "", "", writer, nil)
	if err != nil {
		t.Fatalf("ExtractEmbeddedObjects: %v", err)
	}
	if len(outputs) != 1 || outputs[0] != "out/Embedded Word document.doc" {
		t.Fatalf("outputs = %v", outputs)
	}

	reopened, err := cfb.Open(writer.writes["out/Embedded Word document.doc"])
	if err != nil {
		t.Fatalf("reopen re-serialized doc: %v", err)
	}
	st, err := reopened.Root().GetStream("WordDocument")
	if err != nil {
		t.Fatalf("GetStream: %v", err)
	}
	got, err := st.GetData()
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if !bytes.Equal(got, minimalFIBBytes()) {
		t.Fatal("re-serialized WordDocument bytes do not round-trip")
	}
}

func TestExtractNestedWordDocumentFailsFIBValidation(t *testing.T) {
	root := openFixtureRoot(t, []fixtureNode{
		{name: "WordDocument", data: []byte("not a real FIB, too short")},
	})

	writer := newFakeWriter()
	logger := &fakeLogger{}
	outputs, err := ExtractEmbeddedObjects(root, "out", "", "", writer, logger)
	if err != nil {
		t.Fatalf("ExtractEmbeddedObjects: %v", err)
	}
	if len(outputs) != 0 {
		t.Fatalf("outputs = %v, want none for a garbled FIB", outputs)
	}
	if len(logger.messages) != 1 {
		t.Fatalf("messages = %v, want exactly one skip notice", logger.messages)
	}
}

func TestExtractWorkbookClearsHiddenBitAndReserializes(t *testing.T) {
	root := openFixtureRoot(t, []fixtureNode{
		{name: "Workbook", data: hiddenWorkbookStream()},
	})

	writer := newFakeWriter()
	outputs, err := ExtractEmbeddedObjects(root, "out", "", "", writer, nil)
	if err != nil {
		t.Fatalf("ExtractEmbeddedObjects: %v", err)
	}
	if len(outputs) != 1 || outputs[0] != "out/Embedded Excel document.xls" {
		t.Fatalf("outputs = %v", outputs)
	}

	reopened, err := cfb.Open(writer.writes["out/Embedded Excel document.xls"])
	if err != nil {
		t.Fatalf("reopen re-serialized workbook: %v", err)
	}
	st, err := reopened.Root().GetStream("Workbook")
	if err != nil {
		t.Fatalf("GetStream: %v", err)
	}
	got, err := st.GetData()
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}

	const window1Offset = 4 + 4 // past the zero-length BOF record's 4-byte header and WINDOW1's own header
	grbit := binary.LittleEndian.Uint16(got[window1Offset+8:])
	if grbit&0x0001 != 0 {
		t.Fatalf("hidden bit still set: grbit=%#x", grbit)
	}
}

func TestExtractRecursesIntoNestedStorageAndDoesNotReenterMatchedNode(t *testing.T) {
	root := openFixtureRoot(t, []fixtureNode{
		{
			name: "ObjectPool", isStorage: true,
			children: []fixtureNode{
				{name: "CONTENTS", data: []byte("nested payload")},
			},
		},
	})

	writer := newFakeWriter()
	outputs, err := ExtractEmbeddedObjects(root, "out", "", "", writer, nil)
	if err != nil {
		t.Fatalf("ExtractEmbeddedObjects: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("outputs = %v, want 1 entry", outputs)
	}
	if string(writer.writes["out/Embedded object"]) != "nested payload" {
		t.Fatalf("writes = %v", writer.writes)
	}
}

func TestExtractSkipsOneFailureButContinuesWalk(t *testing.T) {
	root := openFixtureRoot(t, []fixtureNode{
		{
			name: "Bad", isStorage: true,
			children: []fixtureNode{
				{name: "WordDocument", data: []byte("garbled")},
			},
		},
		{
			name: "Good", isStorage: true,
			children: []fixtureNode{
				{name: "CONTENTS", data: []byte("good payload")},
			},
		},
	})

	writer := newFakeWriter()
	logger := &fakeLogger{}
	outputs, err := ExtractEmbeddedObjects(root, "out", "", "", writer, logger)
	if err != nil {
		t.Fatalf("ExtractEmbeddedObjects: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("outputs = %v, want exactly 1 (the bad storage is skipped, not fatal)", outputs)
	}
	if len(logger.messages) != 1 {
		t.Fatalf("messages = %v, want exactly 1 skip notice", logger.messages)
	}
}

func TestNonCollidingPathSuffix(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "does-not-exist.bin")

	path, err := nonCollidingPath(target)
	if err != nil {
		t.Fatalf("nonCollidingPath: %v", err)
	}
	if path != target {
		t.Fatalf("path = %q, want %q (no collision yet)", path, target)
	}
}

func TestNonCollidingPathSuffixIncrementsOnCollision(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "Embedded object.bin")
	if err := os.WriteFile(target, []byte("first"), 0o644); err != nil {
		t.Fatalf("seeding collision: %v", err)
	}

	path, err := nonCollidingPath(target)
	if err != nil {
		t.Fatalf("nonCollidingPath: %v", err)
	}
	want := filepath.Join(dir, "Embedded object (1).bin")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}

	if err := os.WriteFile(want, []byte("second"), 0o644); err != nil {
		t.Fatalf("seeding second collision: %v", err)
	}
	path, err = nonCollidingPath(target)
	if err != nil {
		t.Fatalf("nonCollidingPath: %v", err)
	}
	want = filepath.Join(dir, "Embedded object (2).bin")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
}
