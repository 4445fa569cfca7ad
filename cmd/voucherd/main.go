// Command voucherd serves the gRPC and HTTP APIs. It is voucherctl serve
// with the same flags.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joseph-ayodele/invoice-vouchers/internal/commands"
)

func main() {
	root := commands.NewRootCommand()
	root.SetArgs(append([]string{"serve"}, os.Args[1:]...))
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
