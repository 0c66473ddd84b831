// Command ocrserver is the OCR RPC sidecar.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orneryd/scanlate/pkg/accelerator"
	"github.com/orneryd/scanlate/pkg/assets"
	"github.com/orneryd/scanlate/pkg/config"
	"github.com/orneryd/scanlate/pkg/logging"
	"github.com/orneryd/scanlate/pkg/monitor"
	"github.com/orneryd/scanlate/pkg/ocr"
	"github.com/orneryd/scanlate/pkg/rpcserver"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "ocrserver",
		Short: "OCR inference sidecar",
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ocrserver v%s\n", version)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the OCR RPC server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("host", "127.0.0.1", "bind host")
	serveCmd.Flags().Int("port", 0, "bind port (0 = spec default 50052)")
	serveCmd.Flags().String("model-path", "", "tessdata/model asset directory (overrides SCANLATE_MODEL_PATH and the platform default)")
	serveCmd.Flags().String("model-hub", "", "remote hub URL to provision assets from if missing")
	serveCmd.Flags().String("device", "auto", "accelerator preference: auto, cpu, cuda")
	serveCmd.Flags().String("shape", "monolithic", "OCR pipeline shape: monolithic or hybrid")
	serveCmd.Flags().StringSlice("languages", []string{"eng", "jpn"}, "tesseract language codes")
	serveCmd.Flags().Bool("debug", false, "verbose logging")
	serveCmd.Flags().Bool("allow-all-ifaces", false, "bind beyond loopback (requires explicit opt-in)")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	logging.SuppressThirdPartyWarnings()

	debug, _ := cmd.Flags().GetBool("debug")
	log := logging.New(debug)
	logging.SanitizeLibrarySearchPath(log)

	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	modelPathFlag, _ := cmd.Flags().GetString("model-path")
	modelHub, _ := cmd.Flags().GetString("model-hub")
	device, _ := cmd.Flags().GetString("device")
	shape, _ := cmd.Flags().GetString("shape")
	languages, _ := cmd.Flags().GetStringSlice("languages")
	allowAll, _ := cmd.Flags().GetBool("allow-all-ifaces")

	cfg := config.DefaultOCRConfig()
	cfg.Host = host
	if port != 0 {
		cfg.Port = port
	}
	cfg.ModelPath = config.ResolveModelPath(modelPathFlag, "ocr")
	cfg.Device = config.Device(device)
	cfg.Debug = debug
	cfg.AllowAllIfaces = allowAll
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	accel, err := accelerator.Probe(device)
	if err != nil {
		log.Warn().Err(err).Msg("accelerator probe failed, continuing on cpu")
	}
	log.Info().Str("backend", string(accel.Backend())).Msg("accelerator probed")

	if modelHub != "" {
		manifestPath := filepath.Join(cfg.ModelPath, "manifest.yaml")
		if manifest, merr := assets.LoadManifest(manifestPath); merr == nil {
			provisioner := assets.NewProvisioner(assets.NewHTTPFetcher())
			if err := provisioner.Ensure(modelHub, cfg.ModelPath, manifest); err != nil {
				return fmt.Errorf("provisioning ocr assets: %w", err)
			}
		} else {
			log.Warn().Err(merr).Msg("no manifest found, skipping asset provisioning")
		}
	}

	eng := ocr.New(ocr.Config{
		Name:      "scanlate-ocr",
		Version:   version,
		Shape:     ocr.Shape(shape),
		ModelPath: cfg.ModelPath,
		Languages: languages,
	})

	ctx, cancel := context.WithTimeout(context.Background(), logging.StartupTimeout)
	defer cancel()
	if err := eng.Load(ctx); err != nil {
		return fmt.Errorf("loading ocr engine: %w", err)
	}
	if err := eng.Warmup(ctx); err != nil {
		log.Warn().Err(err).Msg("warmup reported an error, continuing")
	}

	mon := monitor.New(monitor.DefaultInterval, accel, log)
	mon.Start()
	defer mon.Stop(context.Background())

	lis, err := rpcserver.Listen(cfg.Host, cfg.Port)
	if err != nil {
		return err
	}
	srv := rpcserver.NewOCRServer(eng, mon, accel, log)

	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- srv.Serve(lis) }()

	if err := logging.SignalReady(os.Stderr); err != nil {
		log.Warn().Err(err).Msg("failed to emit readiness marker")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serveErrCh:
		if err != nil {
			log.Error().Err(err).Msg("rpc server exited unexpectedly")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), rpcserver.ShutdownGrace)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	accel.Release()
	_ = eng.Close()

	log.Info().Msg("shutdown complete")
	return nil
}
