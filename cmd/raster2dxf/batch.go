package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ironsheep/raster2dxf/internal/batch"
)

func newBatchCmd() *cobra.Command {
	var (
		format string
		suffix string
		toDXF  bool
		store  bool
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "batch <input-dir> <output-dir>",
		Short: "Process every image in a folder",
		Long: `Process every jpg, jpeg, png, bmp, tiff and webp file directly inside
input-dir. By default each image becomes an edge map; with --dxf it is
vectorized with the configured conversion settings. A file that fails is
reported and skipped.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := batch.NewProcessor()

			alg, params, invert, err := edgeSettings(cmd.Flags())
			if err != nil {
				return err
			}
			p.Algorithm, p.Params, p.Invert = alg, params, invert
			p.Format = cfg.Edges.Format
			p.Suffix = cfg.Edges.Suffix
			if cmd.Flags().Changed("format") {
				p.Format = format
			}
			if cmd.Flags().Changed("suffix") {
				p.Suffix = suffix
			}

			if toDXF {
				conv, err := conversionConfig(cmd)
				if err != nil {
					return err
				}
				p.Convert = &conv
				if !cmd.Flags().Changed("suffix") {
					p.Suffix = ""
				}
			}

			if store {
				if p.Sink, err = openSink(); err != nil {
					return err
				}
			}

			files, err := batch.ListImages(args[0])
			if err != nil {
				return err
			}

			if !quiet && len(files) > 0 {
				bar := progressbar.NewOptions(len(files),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionSetItsString("images"),
					progressbar.OptionOnCompletion(func() {
						fmt.Fprint(os.Stderr, "\n")
					}),
					progressbar.OptionSetRenderBlankState(true),
				)
				defer func() { _ = bar.Finish() }()
				p.OnProgress = func(current, total int, name string) {
					bar.Describe(name)
					_ = bar.Set(current)
				}
			}

			sum, err := p.RunFiles(cmd.Context(), files, args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, sum.Message)
			for _, e := range sum.Errors {
				fmt.Fprintf(out, "  failed: %s\n", e)
			}
			return nil
		},
	}

	addEdgeFlags(cmd.Flags())
	addConversionFlags(cmd.Flags())
	cmd.Flags().StringVar(&format, "format", "png", "output image format: png, jpg, bmp or tiff")
	cmd.Flags().StringVar(&suffix, "suffix", "_edges", "appended to each output file name")
	cmd.Flags().BoolVar(&toDXF, "dxf", false, "write DXF drawings instead of edge maps")
	cmd.Flags().BoolVar(&store, "store", false, "copy each output to the configured storage")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "no progress bar")
	return cmd
}
