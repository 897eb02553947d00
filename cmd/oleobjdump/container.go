package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/cfbkit/oleobj/cfb"
	"github.com/cfbkit/oleobj/ooxmlscan"
)

// containerKind distinguishes the three outer document formats this
// command accepts: a bare compound file, an OOXML ZIP wrapping one or
// more compound-file embeddings, or an RTF document carrying
// \object/\objdata payloads.
type containerKind int

const (
	containerCFB containerKind = iota
	containerOOXML
	containerRTF
)

var zipSignature = []byte("PK\x03\x04")

// sniffContainer inspects the leading bytes of data to decide which of
// the three supported outer formats it is. An unrecognized signature fails
// with a plain error rather than guessing.
func sniffContainer(data []byte) (containerKind, error) {
	if ooxmlscan.IsCompoundFile(data) {
		return containerCFB, nil
	}
	if bytes.HasPrefix(data, zipSignature) {
		return containerOOXML, nil
	}
	if looksLikeRTF(data) {
		return containerRTF, nil
	}
	return 0, fmt.Errorf("oleobjdump: unrecognized input format (not a compound file, OOXML package, or RTF document)")
}

func looksLikeRTF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, "\xef\xbb\xbf"), []byte("{\\rtf"))
}

func readInputFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("oleobjdump: reading %s: %w", path, err)
	}
	return data, nil
}

// openCompoundFile is a small convenience wrapper shared by the
// subcommands that only ever need the root storage of a standalone
// compound file.
func openCompoundFile(data []byte) (*cfb.CompoundFile, error) {
	return cfb.Open(data)
}

// osStatSize returns the size in bytes of the file at path, for the
// human-readable summary extract prints after a successful run.
func osStatSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
