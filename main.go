package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gyrelab/gyre/cmd"
)

func main() {
	cobra.CheckErr(cmd.NewCLI().ExecuteContext(context.Background()))
}
