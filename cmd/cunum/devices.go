package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/cunum/cunum/cuda"
	"github.com/cunum/cunum/format"
)

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List visible devices",
		Args:  cobra.NoArgs,
		RunE:  DevicesHandler,
	}
}

func DevicesHandler(cmd *cobra.Command, args []string) error {
	infos, err := cuda.Devices()
	if err != nil {
		return err
	}

	var data [][]string
	for _, info := range infos {
		data = append(data, []string{
			info.ID,
			info.Name,
			info.Library,
			info.Compute(),
			fmt.Sprintf("%s / %s", format.HumanBytes2(info.FreeMemory), format.HumanBytes2(info.TotalMemory)),
		})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "NAME", "LIBRARY", "COMPUTE", "FREE / TOTAL"})
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
