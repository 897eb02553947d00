package main

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cfbkit/oleobj/cfb"
	"github.com/cfbkit/oleobj/ooxmlscan"
	"github.com/cfbkit/oleobj/rtfscan"
)

var listCmd = &cobra.Command{
	Use:   "list <file>",
	Short: "List the storages and streams a document contains without extracting anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	data, err := readInputFile(args[0])
	if err != nil {
		return err
	}

	kind, err := sniffContainer(data)
	if err != nil {
		return err
	}

	switch kind {
	case containerCFB:
		cf, err := openCompoundFile(data)
		if err != nil {
			return err
		}
		printStorageTree(cf.Root(), 0)
	case containerOOXML:
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return fmt.Errorf("oleobjdump: opening OOXML container: %w", err)
		}
		embeddings, err := ooxmlscan.FindEmbeddings(zr)
		if err != nil {
			return err
		}
		if len(embeddings) == 0 {
			fmt.Println("no embedded objects found")
			return nil
		}
		for _, e := range embeddings {
			label := "raw payload"
			if ooxmlscan.IsCompoundFile(e.Data) {
				label = "compound file"
			}
			color.Cyan("%s  (%s, %s)", e.Name, label, humanize.Bytes(uint64(len(e.Data))))
		}
	case containerRTF:
		payloads, err := rtfscan.FindObjectPayloads(data)
		if err != nil {
			return err
		}
		if len(payloads) == 0 {
			fmt.Println("no \\objdata payloads found")
			return nil
		}
		for i, p := range payloads {
			color.Cyan("object %d  (%s)", i+1, humanize.Bytes(uint64(len(p))))
		}
	}
	return nil
}

func printStorageTree(s *cfb.Storage, depth int) {
	indent := strings.Repeat("  ", depth)
	if depth > 0 {
		if stream, ok := s.AsStream(); ok {
			fmt.Printf("%s%s  (%s)\n", indent, s.Name(), humanize.Bytes(stream.Size()))
		} else {
			color.New(color.Bold).Printf("%s%s/\n", indent, s.Name())
		}
	}
	s.VisitEntries(false, func(child *cfb.Storage) {
		printStorageTree(child, depth+1)
	})
}
