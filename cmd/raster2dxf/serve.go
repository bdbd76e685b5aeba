package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/raster2dxf/internal/logger"
	"github.com/ironsheep/raster2dxf/internal/server"
	"github.com/ironsheep/raster2dxf/internal/transport"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion service",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := basePipeline()
			if err != nil {
				return err
			}
			sink, err := openSink()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.ServerAddress()
			}

			gin.SetMode(gin.ReleaseMode)
			handler := transport.NewHandler(transport.Options{
				Server:  cfg.Server,
				Base:    base,
				Sink:    sink,
				Version: Version,
			})

			// The write timeout leaves room for the error response after a
			// pipeline timeout.
			srv := &http.Server{
				Addr:         addr,
				Handler:      handler,
				ReadTimeout:  cfg.Server.RequestTimeout,
				WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.WithFields(logrus.Fields{
					"address": addr,
					"timeout": cfg.Server.RequestTimeout,
					"version": Version,
				}).Info("Starting HTTP server")

				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			logger.Info("Shutting down server...")

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}

			logger.Info("Server exited")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from HOST and PORT)")
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdin/stdout",
		Long: `Run the MCP (Model Context Protocol) server. Requests are read from stdin
and responses written to stdout, one JSON-RPC message per line. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := basePipeline()
			if err != nil {
				return err
			}
			_, edges, err := baseEdges()
			if err != nil {
				return err
			}
			sink, err := openSink()
			if err != nil {
				return err
			}

			logger.WithFields(logrus.Fields{
				"version":    Version,
				"build_time": BuildTime,
				"commit":     GitCommit,
			}).Debug("MCP server starting")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(
				server.WithPipeline(base),
				server.WithEdgeParams(edges),
				server.WithSink(sink),
				server.WithVersion(Version),
			)
			err = srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
