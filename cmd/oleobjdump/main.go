// Command oleobjdump extracts, lists, and un-hides embedded OLE objects
// in legacy Office binary documents, OOXML containers, and RTF files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
