// Command genesis runs the page builder without the desktop window: as an
// MCP server, a live preview, or a one-shot exporter of project files.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
