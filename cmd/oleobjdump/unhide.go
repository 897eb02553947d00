package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cfbkit/oleobj/biffcrypt"
	"github.com/cfbkit/oleobj/xlsvis"
)

var unhidePassword string

var unhideCmd = &cobra.Command{
	Use:   "unhide <file.xls>",
	Short: "Clear the hidden-workbook flag of a standalone BIFF8 .xls file in place",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnhide,
}

func init() {
	unhideCmd.Flags().StringVar(&unhidePassword, "password", "", "password for a legacy RC4-encrypted workbook")
}

func runUnhide(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := readInputFile(path)
	if err != nil {
		return err
	}

	cf, err := openCompoundFile(data)
	if err != nil {
		return err
	}
	st, err := cf.Root().GetStream("Workbook")
	if err != nil {
		return fmt.Errorf("oleobjdump: %s has no Workbook stream: %w", path, err)
	}

	raw, err := st.GetData()
	if err != nil {
		return err
	}
	decrypted, err := biffcrypt.DecryptWorkbookStream(raw, unhidePassword)
	if err != nil {
		return err
	}
	visible, err := xlsvis.SetVisible(decrypted)
	if err != nil {
		return err
	}
	if err := st.SetData(visible); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := cf.Save(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("oleobjdump: writing %s: %w", path, err)
	}

	color.Green("unhid workbook in %s", path)
	return nil
}
