package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"log"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cfbkit/oleobj"
	"github.com/cfbkit/oleobj/extract"
	"github.com/cfbkit/oleobj/ooxmlscan"
	"github.com/cfbkit/oleobj/rtfscan"
)

var (
	extractOutputDir string
	extractPassword  string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract embedded objects from a document into a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutputDir, "output", "o", ".", "directory to write extracted objects into")
	extractCmd.Flags().StringVar(&extractPassword, "password", "", "password for a legacy RC4-encrypted embedded Workbook")
}

func runExtract(cmd *cobra.Command, args []string) error {
	data, err := readInputFile(args[0])
	if err != nil {
		return err
	}

	kind, err := sniffContainer(data)
	if err != nil {
		return err
	}

	writer := extract.OSFileWriter{}
	logger := cmdLogger{}

	var outputs []string
	switch kind {
	case containerCFB:
		outputs, err = extractFromCFB(data, writer, logger)
	case containerOOXML:
		outputs, err = extractFromOOXML(data, writer, logger)
	case containerRTF:
		outputs, err = extractFromRTF(data, writer)
	}
	if err != nil {
		return err
	}

	for _, path := range outputs {
		info, statErr := osStatSize(path)
		if statErr != nil {
			color.Green("extracted %s", path)
			continue
		}
		color.Green("extracted %s (%s)", path, humanize.Bytes(uint64(info)))
	}
	if len(outputs) == 0 {
		fmt.Println("no embedded objects found")
	}
	return nil
}

func extractFromCFB(data []byte, writer extract.FileWriter, logger extract.Logger) ([]string, error) {
	cf, err := openCompoundFile(data)
	if err != nil {
		return nil, err
	}
	return extract.ExtractEmbeddedObjects(cf.Root(), extractOutputDir, "", extractPassword, writer, logger)
}

func extractFromOOXML(data []byte, writer extract.FileWriter, logger extract.Logger) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("oleobjdump: opening OOXML container: %w", err)
	}
	embeddings, err := ooxmlscan.FindEmbeddings(zr)
	if err != nil {
		return nil, err
	}

	var outputs []string
	for _, e := range embeddings {
		base := filepath.Base(e.Name)
		if ooxmlscan.IsCompoundFile(e.Data) {
			cf, err := openCompoundFile(e.Data)
			if err != nil {
				logger.Write(fmt.Sprintf("oleobjdump: skipping %s: %v", e.Name, err))
				continue
			}
			paths, err := extract.ExtractEmbeddedObjects(cf.Root(), extractOutputDir, base, extractPassword, writer, logger)
			if err != nil {
				logger.Write(fmt.Sprintf("oleobjdump: skipping %s: %v", e.Name, err))
				continue
			}
			outputs = append(outputs, paths...)
			continue
		}
		path, err := writer.Write(filepath.Join(extractOutputDir, base), e.Data)
		if err != nil {
			logger.Write(fmt.Sprintf("oleobjdump: writing %s: %v", e.Name, err))
			continue
		}
		outputs = append(outputs, path)
	}
	return outputs, nil
}

func extractFromRTF(data []byte, writer extract.FileWriter) ([]string, error) {
	payloads, err := rtfscan.FindObjectPayloads(data)
	if err != nil {
		return nil, err
	}

	var outputs []string
	for i, payload := range payloads {
		obj, err := oleobj.DecodeObjectV10(payload)
		if err != nil {
			log.Printf("oleobjdump: skipping RTF object %d: %v", i+1, err)
			continue
		}

		name := fmt.Sprintf("Embedded object %d", i+1)
		var fileData []byte
		switch {
		case len(obj.NativeData) > 0:
			fileData = obj.NativeData
		case obj.Presentation != nil:
			fileData = obj.Presentation.Data
		default:
			log.Printf("oleobjdump: RTF object %d (%s) carries no extractable payload", i+1, obj.ClassName)
			continue
		}

		path, err := writer.Write(filepath.Join(extractOutputDir, name), fileData)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, path)
	}
	return outputs, nil
}

type cmdLogger struct{}

func (cmdLogger) Write(message string) {
	log.Print(message)
}
