package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/playout/internal/format"
	"github.com/smazurov/playout/internal/media"
)

// CreateFormatsCmd creates the formats command.
func CreateFormatsCmd() *cobra.Command {
	var width, height int

	formatsCmd := &cobra.Command{
		Use:   "formats",
		Short: "List supported pixel formats",
		Long:  `List the supported capture pixel formats and the source buffer each needs for a frame size.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			frame := media.Dimensions{Width: width, Height: height}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tFOURCC\tSOURCE\tBYTES/TEXEL\tDESCRIPTION")
			for _, f := range format.Formats() {
				sel, err := format.Select(f, frame, true, media.FieldOdd)
				if err != nil {
					return err
				}
				d, _ := format.Lookup(f)
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					d.Name, d.FourCC, sel.SourceDimensions, sel.BytesPerTexel, d.Description)
			}
			return w.Flush()
		},
	}

	formatsCmd.Flags().IntVar(&width, "width", 1920, "Frame width")
	formatsCmd.Flags().IntVar(&height, "height", 1080, "Frame height")

	return formatsCmd
}
