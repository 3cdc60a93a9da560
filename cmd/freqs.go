package cmd

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gyrelab/gyre/rope"
)

func NewFreqsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "freqs",
		Short: "Print the frequency progression for a rotation dim",
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, err := cmd.Flags().GetInt("dim")
			if err != nil {
				return err
			}
			theta, err := cmd.Flags().GetFloat64("theta")
			if err != nil {
				return err
			}
			return printFreqs(os.Stdout, dim, theta)
		},
	}

	cmd.Flags().Int("dim", 128, "Rotation dimension")
	cmd.Flags().Float64("theta", rope.DefaultTheta, "Frequency base")

	return cmd
}

func printFreqs(out io.Writer, dim int, theta float64) error {
	freqs, err := rope.ComputeFreqs(dim, theta)
	if err != nil {
		return err
	}

	var data [][]string
	for i, f := range freqs {
		data = append(data, []string{
			strconv.Itoa(i),
			fmt.Sprintf("%.6g", f),
			fmt.Sprintf("%.4g", 2*math.Pi/f),
		})
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"PAIR", "FREQUENCY", "PERIOD"})
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
