// mddump - print the contents of a minidump crash report as readable text.
package main

import (
	"fmt"
	"os"

	"mddump/cmd"
)

func main() {
	if err := cmd.Execute(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "mddump: %v\n", err)
		os.Exit(1)
	}
}
