package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gyrelab/gyre/rope"
)

func NewSplitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Show how a head dim splits across the grid axes",
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, err := cmd.Flags().GetInt("dim")
			if err != nil {
				return err
			}
			return printSplit(os.Stdout, dim)
		},
	}

	cmd.Flags().Int("dim", 128, "Per-head rotation dimension")

	return cmd
}

func printSplit(out io.Writer, dim int) error {
	if dim <= 0 || dim%2 != 0 {
		return fmt.Errorf("dim must be a positive even number, got %d", dim)
	}

	f, h, w := rope.SplitDim(dim)
	data := [][]string{
		{"frames", strconv.Itoa(f), strconv.Itoa(f / 2)},
		{"height", strconv.Itoa(h), strconv.Itoa(h / 2)},
		{"width", strconv.Itoa(w), strconv.Itoa(w / 2)},
		{"total", strconv.Itoa(dim), strconv.Itoa(dim / 2)},
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"AXIS", "DIM", "PAIRS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}
