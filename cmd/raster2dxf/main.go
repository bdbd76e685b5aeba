// Command raster2dxf converts raster line art into DXF contour drawings. It runs
// as an HTTP service, an MCP server on stdio, or a one-shot CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/raster2dxf/internal/config"
	"github.com/ironsheep/raster2dxf/internal/imaging"
	"github.com/ironsheep/raster2dxf/internal/logger"
	"github.com/ironsheep/raster2dxf/internal/pipeline"
	"github.com/ironsheep/raster2dxf/internal/storage"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	cfgFile  string
	envFile  string
	logLevel string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "raster2dxf",
	Short: "Trace raster line art into DXF contour drawings",
	Long: `raster2dxf thresholds an image, traces every contour of the resulting
mask and writes the contours as closed polylines (optionally filled) to a DXF
R2000 drawing.

Settings come from defaults, an optional YAML file (--config), a .env file and
the environment, in that order.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var envFiles []string
		if envFile != "" {
			envFiles = append(envFiles, envFile)
		}
		var err error
		if cfg, err = config.Load(cfgFile, envFiles...); err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		level := cfg.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		return logger.Configure(level, cfg.Log.Format)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load instead of ./.env")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newEdgesCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "raster2dxf %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}

// basePipeline returns the conversion defaults from the loaded settings.
func basePipeline() (pipeline.Config, error) {
	return pipeline.FromSettings(cfg.Pipeline)
}

// baseEdges returns the edge algorithm and parameters from the loaded settings.
func baseEdges() (imaging.Algorithm, imaging.EdgeParams, error) {
	alg, err := imaging.ParseAlgorithm(cfg.Edges.Algorithm)
	if err != nil {
		return alg, imaging.EdgeParams{}, err
	}
	return alg, cfg.Edges.Params.Normalized(), nil
}

// openSink returns the configured storage sink, or nil when none is configured.
func openSink() (storage.Sink, error) {
	sink, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return sink, nil
}
