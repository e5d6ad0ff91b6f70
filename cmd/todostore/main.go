// todostore is a command-line tool and HTTP server for a file-backed
// store of todo items.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	app := &App{}
	err := newRootCommand(app).ExecuteContext(context.Background())
	app.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
