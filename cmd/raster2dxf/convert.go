package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ironsheep/raster2dxf/internal/dxf"
	"github.com/ironsheep/raster2dxf/internal/imaging"
	"github.com/ironsheep/raster2dxf/internal/logger"
	"github.com/ironsheep/raster2dxf/internal/pipeline"
	"github.com/ironsheep/raster2dxf/internal/render"
)

// addConversionFlags registers one flag per conversion parameter. The flag
// names are the HTTP form field names. Flags already defined on fs are shared.
func addConversionFlags(fs *pflag.FlagSet) {
	boolFlag := func(name string, value bool, usage string) {
		if fs.Lookup(name) == nil {
			fs.Bool(name, value, usage)
		}
	}
	fs.Int(pipeline.ParamThreshold, 128, "gray level separating foreground from background (0-255)")
	boolFlag(pipeline.ParamInvert, false, "treat dark pixels as foreground")
	boolFlag(pipeline.ParamSingleLine, false, "thin the mask before tracing")
	fs.String(pipeline.ParamThinning, "morph", "thinning strategy: morph or skeleton")
	boolFlag(pipeline.ParamIgnoreBorder, false, "pad the mask with a 10 px background border")
	fs.String(pipeline.ParamFillColor, "none", "fill contours: none, black or white")
	fs.String(pipeline.ParamPrecision, "none", "none, more_points_<n> (n in 1..64) or curve_edge")
	fs.String(pipeline.ParamApproximation, "none", "none or simple")
	boolFlag(pipeline.ParamDropFrame, true, "skip contours spanning the whole image")
}

// flagLookup reports only flags set on the command line, so unset flags keep
// the configured defaults.
func flagLookup(fs *pflag.FlagSet) pipeline.Lookup {
	return func(key string) (string, bool) {
		f := fs.Lookup(key)
		if f == nil || !f.Changed {
			return "", false
		}
		return f.Value.String(), true
	}
}

func conversionConfig(cmd *cobra.Command) (pipeline.Config, error) {
	base, err := basePipeline()
	if err != nil {
		return base, err
	}
	return base.WithParams(flagLookup(cmd.Flags()))
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func newConvertCmd() *cobra.Command {
	var (
		output  string
		preview string
		store   bool
	)

	cmd := &cobra.Command{
		Use:   "convert <image>",
		Short: "Convert one image to a DXF drawing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := conversionConfig(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			res, err := pipeline.Convert(data, conv)
			if err != nil {
				return err
			}

			if output == "" {
				output = replaceExt(args[0], ".dxf")
			}
			if err := os.WriteFile(output, res.DXF, 0o644); err != nil {
				return fmt.Errorf("write DXF: %w", err)
			}

			if preview != "" {
				png, err := render.Contours(res.Width, res.Height, res.Contours, conv.RenderOptions())
				if err != nil {
					return err
				}
				if err := os.WriteFile(preview, png, 0o644); err != nil {
					return fmt.Errorf("write preview: %w", err)
				}
			}

			if store {
				sink, err := openSink()
				if err != nil {
					return err
				}
				if sink == nil {
					return fmt.Errorf("--store needs STORAGE_DRIVER to be set")
				}
				loc, err := sink.Put(cmd.Context(), filepath.Base(output), res.DXF)
				if err != nil {
					return err
				}
				logger.WithField("location", loc).Info("DXF stored")
			}

			logger.WithFields(logrus.Fields{
				"output":    output,
				"polylines": res.Stats.Polylines,
				"solids":    res.Stats.Solids,
			}).Info("DXF conversion completed")

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d contours, %d solids\n", output, res.Stats.Polylines, res.Stats.Solids)
			return nil
		},
	}

	addConversionFlags(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "DXF file (default: image path with .dxf)")
	cmd.Flags().StringVar(&preview, "preview", "", "also render the contours to this PNG file")
	cmd.Flags().BoolVar(&store, "store", false, "copy the DXF to the configured storage")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "preview <image>",
		Short: "Write the binarized mask that would be traced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := conversionConfig(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			res, err := pipeline.Preview(data, conv)
			if err != nil {
				return err
			}
			if output == "" {
				output = replaceExt(args[0], "_mask.png")
			}
			if err := os.WriteFile(output, res.PNG, 0o644); err != nil {
				return fmt.Errorf("write preview: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d\n", output, res.Width, res.Height)
			return nil
		},
	}

	addConversionFlags(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "PNG file (default: <image>_mask.png)")
	return cmd
}

// addEdgeFlags registers the edge filter flags.
func addEdgeFlags(fs *pflag.FlagSet) {
	defaults := imaging.DefaultEdgeParams()
	fs.String("algorithm", "Canny", "Canny, Sobel, Prewitt or Laplacian")
	fs.Int("blur-kernel", defaults.BlurKernel, "Gaussian pre-blur size (odd, 1 disables)")
	fs.Int("canny-low", defaults.CannyLow, "Canny low threshold")
	fs.Int("canny-high", defaults.CannyHigh, "Canny high threshold")
	fs.Int("ksize", defaults.SobelKSize, "Sobel and Laplacian aperture (1, 3, 5 or 7)")
	fs.Bool("invert", false, "dark edges on a white background")
}

// edgeSettings applies the edge flags set on the command line to the
// configured defaults.
func edgeSettings(fs *pflag.FlagSet) (imaging.Algorithm, imaging.EdgeParams, bool, error) {
	alg, p, err := baseEdges()
	if err != nil {
		return alg, p, false, err
	}
	if fs.Changed("algorithm") {
		name, _ := fs.GetString("algorithm")
		if alg, err = imaging.ParseAlgorithm(name); err != nil {
			return alg, p, false, err
		}
	}
	for flag, dst := range map[string]*int{
		"blur-kernel": &p.BlurKernel,
		"canny-low":   &p.CannyLow,
		"canny-high":  &p.CannyHigh,
		"ksize":       &p.SobelKSize,
	} {
		if fs.Changed(flag) {
			*dst, _ = fs.GetInt(flag)
		}
	}
	if fs.Changed("ksize") {
		p.LaplacianKSize = p.SobelKSize
	}
	invert, _ := fs.GetBool("invert")
	return alg, p.Normalized(), invert, nil
}

func newEdgesCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "edges <image>",
		Short: "Write an edge map of one image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alg, params, invert, err := edgeSettings(cmd.Flags())
			if err != nil {
				return err
			}
			img, err := imaging.LoadFile(args[0])
			if err != nil {
				return err
			}
			edges, err := imaging.DetectEdges(img, alg, params)
			if err != nil {
				return err
			}
			if invert {
				edges = imaging.InvertGray(edges)
			}

			if output == "" {
				output = replaceExt(args[0], cfg.Edges.Suffix+"."+imaging.OutputExtension(cfg.Edges.Format))
			}
			data, err := imaging.EncodeImageBytes(edges, filepath.Ext(output))
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write edge map: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s edges\n", output, alg)
			return nil
		},
	}

	addEdgeFlags(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "output image; format from extension")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.dxf>",
		Short: "Summarize the layers and entities of a DXF file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			d, err := dxf.Parse(f)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d.Summary())
		},
	}
}
