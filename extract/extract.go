// Package extract implements the embedded-object extraction policy: it
// walks a compound-file storage tree, dispatches to the right record
// decoder (or re-serializes a nested compound file) based on which
// well-known child stream is present, and writes the recovered bytes to
// an output directory through a host-supplied FileWriter.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/cfbkit/oleobj"
	"github.com/cfbkit/oleobj/biffcrypt"
	"github.com/cfbkit/oleobj/cfb"
	"github.com/cfbkit/oleobj/xlsvis"
)

// FileWriter is the filesystem-writing collaborator required from the
// host (spec.md §6). Write is expected to write data atomically to path,
// choosing a non-colliding variant (" (1)", " (2)", ...) if path already
// exists, and returns the path actually used.
type FileWriter interface {
	Write(path string, data []byte) (string, error)
}

// Logger is the single-method logging collaborator required from the
// host.
type Logger interface {
	Write(message string)
}

// nopLogger discards every message; used when the caller passes a nil
// Logger.
type nopLogger struct{}

func (nopLogger) Write(string) {}

// ExtractEmbeddedObjects walks root and every storage reachable beneath
// it, performing the first matching extraction layout (spec.md §4.7) at
// each node. A node that matches is not itself recursed into (it has
// already been fully handled, re-serialized or decoded); a node that
// fails is logged and skipped so the rest of the document still
// extracts. preferredName, when non-empty, is honored only at root —
// nested storages discovered during the walk always get the
// decoder-chosen default name. password is tried against any embedded
// Workbook stream protected by a legacy BIFF8 FilePass record; an empty
// password falls back to the BIFF8 default ("VelvetSweatshop").
func ExtractEmbeddedObjects(root *cfb.Storage, outputDir, preferredName, password string, writer FileWriter, logger Logger) ([]string, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	var outputs []string
	walk(root, outputDir, preferredName, password, writer, logger, &outputs)
	return outputs, nil
}

func walk(s *cfb.Storage, outputDir, preferredName, password string, writer FileWriter, logger Logger, outputs *[]string) {
	path, matched, err := dispatch(s, outputDir, preferredName, password, writer)
	if err != nil {
		logger.Write(fmt.Sprintf("extract: skipping storage %q: %v", s.Name(), err))
		return
	}
	if matched {
		*outputs = append(*outputs, path)
		return
	}

	s.VisitEntries(false, func(child *cfb.Storage) {
		if !child.IsStorage() {
			return
		}
		walk(child, outputDir, "", password, writer, logger, outputs)
	})
}

// dispatch tests for the well-known child streams in the priority order
// spec.md §4.7 mandates, performing the first match. ok is false with a
// nil error when nothing recognized is present — not an error condition.
func dispatch(s *cfb.Storage, outputDir, preferredName, password string, writer FileWriter) (path string, ok bool, err error) {
	if st, found := s.TryGetStream("CONTENTS"); found {
		return extractContents(st, outputDir, preferredName, writer)
	}
	if st, found := s.TryGetStream("Package"); found {
		return extractRaw(st, outputDir, "Embedded object", writer)
	}
	if st, found := s.TryGetStream("EmbeddedOdf"); found {
		return extractRaw(st, outputDir, "Embedded object", writer)
	}
	if st, found := s.TryGetStream("\x01Ole10Native"); found {
		return extractOle10Native(s, st, outputDir, writer)
	}
	if s.ExistsStream("WordDocument") {
		if err := validateNestedWordDocument(s); err != nil {
			return "", false, err
		}
		return reserialize(s, outputDir, preferredName, "Embedded Word document.doc", writer)
	}
	if s.ExistsStream("Workbook") {
		if err := applyWorkbookVisibility(s, password); err != nil {
			return "", false, err
		}
		return reserialize(s, outputDir, preferredName, "Embedded Excel document.xls", writer)
	}
	if s.ExistsStream("PowerPoint Document") {
		return reserialize(s, outputDir, preferredName, "Embedded PowerPoint document.ppt", writer)
	}
	return "", false, nil
}

const documentOlePrefix = "%DocumentOle:"

// splitDocumentOlePrefix recognizes the "%DocumentOle:<name>%" marker
// some producers prepend to a CONTENTS stream, returning the embedded
// name and the remaining payload when present.
func splitDocumentOlePrefix(data []byte) (name string, rest []byte, found bool) {
	if !bytes.HasPrefix(data, []byte(documentOlePrefix)) {
		return "", data, false
	}
	tail := data[len(documentOlePrefix):]
	end := bytes.IndexByte(tail, '%')
	if end < 0 {
		return "", data, false
	}
	return string(tail[:end]), tail[end+1:], true
}

func extractContents(st *cfb.Stream, outputDir, preferredName string, writer FileWriter) (string, bool, error) {
	data, err := st.GetData()
	if err != nil {
		return "", false, err
	}

	name := preferredName
	if embeddedName, rest, found := splitDocumentOlePrefix(data); found {
		name = embeddedName
		data = rest
	} else if name == "" {
		name = "Embedded object"
	}

	path, err := writer.Write(filepath.Join(outputDir, name), data)
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

func extractRaw(st *cfb.Stream, outputDir, fallbackName string, writer FileWriter) (string, bool, error) {
	data, err := st.GetData()
	if err != nil {
		return "", false, err
	}
	path, err := writer.Write(filepath.Join(outputDir, fallbackName), data)
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

func extractOle10Native(s *cfb.Storage, nativeStream *cfb.Stream, outputDir string, writer FileWriter) (string, bool, error) {
	nativeData, err := nativeStream.GetData()
	if err != nil {
		return "", false, err
	}

	var compObj *oleobj.CompObjStream
	if cst, found := s.TryGetStream("\x01CompObj"); found {
		raw, err := cst.GetData()
		if err != nil {
			return "", false, err
		}
		compObj, err = oleobj.DecodeCompObj(raw)
		if err != nil {
			return "", false, err
		}
	}

	result, ok, err := oleobj.DecodeOle10Native(nativeData, compObj)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	path, err := writer.Write(filepath.Join(outputDir, result.FileName), result.Data)
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

// applyWorkbookVisibility clears the hidden bit of the embedded
// Workbook's first WINDOW1 record, decrypting first with password (or
// the BIFF8 default password, if password is empty) when the stream
// carries a legacy RC4 FilePass record.
func applyWorkbookVisibility(s *cfb.Storage, password string) error {
	st, err := s.GetStream("Workbook")
	if err != nil {
		return err
	}
	data, err := st.GetData()
	if err != nil {
		return err
	}
	decrypted, err := biffcrypt.DecryptWorkbookStream(data, password)
	if err != nil {
		return err
	}
	visible, err := xlsvis.SetVisible(decrypted)
	if err != nil {
		return err
	}
	return st.SetData(visible)
}

// reserialize copies s's entire subtree into a freshly created standalone
// compound file and writes it out under name (or defaultName if name is
// empty), preserving every storage/stream name, CLSID, timestamp, and
// stream byte.
func reserialize(s *cfb.Storage, outputDir, preferredName, defaultName string, writer FileWriter) (string, bool, error) {
	name := preferredName
	if name == "" {
		name = defaultName
	}

	sub, err := cfb.CopySubtree(s)
	if err != nil {
		return "", false, err
	}
	var buf bytes.Buffer
	if err := sub.Save(&buf); err != nil {
		return "", false, err
	}

	path, err := writer.Write(filepath.Join(outputDir, name), buf.Bytes())
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}
