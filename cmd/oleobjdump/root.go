package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "oleobjdump",
	Short: "Extract and inspect embedded OLE objects in Office documents",
}

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(unhideCmd)
}
