package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joseph-ayodele/invoice-vouchers/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
