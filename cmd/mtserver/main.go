// Command mtserver is the translation-engine RPC sidecar: a cobra root
// command with a serve subcommand whose flags bind directly to
// pkg/config.
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
	"github.com/orneryd/scanlate/pkg/aggregator"
	"github.com/orneryd/scanlate/pkg/assets"
	"github.com/orneryd/scanlate/pkg/config"
	"github.com/orneryd/scanlate/pkg/logging"
	"github.com/orneryd/scanlate/pkg/monitor"
	"github.com/orneryd/scanlate/pkg/mt"
	"github.com/orneryd/scanlate/pkg/rpcserver"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "mtserver",
		Short: "Machine-translation inference sidecar",
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mtserver v%s\n", version)
		},
	})

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the translation RPC server",
		RunE:  runServe,
	}
	serveCmd.Flags().String("host", "127.0.0.1", "bind host")
	serveCmd.Flags().Int("port", 0, "bind port (0 = spec default 50051)")
	serveCmd.Flags().String("model-path", "", "model asset directory (overrides SCANLATE_MODEL_PATH and the platform default)")
	serveCmd.Flags().String("model-hub", "", "remote hub URL to provision the model from if missing")
	serveCmd.Flags().String("device", "auto", "accelerator preference: auto, cpu, cuda")
	serveCmd.Flags().String("compute-type", "int8", "CTranslate2 compute type")
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
	computeType, _ := cmd.Flags().GetString("compute-type")
	allowAll, _ := cmd.Flags().GetBool("allow-all-ifaces")

	cfg := config.DefaultMTConfig()
	cfg.Host = host
	if port != 0 {
		cfg.Port = port
	}
	cfg.ModelPath = config.ResolveModelPath(modelPathFlag, "mt")
	cfg.Device = config.Device(device)
	cfg.ComputeType = computeType
	cfg.Debug = debug
	cfg.AllowAllIfaces = allowAll
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	accel, err := accelerator.Probe(device)
	if err != nil {
		// Probe itself never fails by contract, but guard anyway: downgrade
		// to CPU rather than abort startup.
		log.Warn().Err(err).Msg("accelerator probe failed, continuing on cpu")
	}
	log.Info().Str("backend", string(accel.Backend())).Str("device", accel.DeviceName()).Msg("accelerator probed")

	if modelHub != "" {
		manifestPath := filepath.Join(cfg.ModelPath, "manifest.yaml")
		if manifest, merr := assets.LoadManifest(manifestPath); merr == nil {
			provisioner := assets.NewProvisioner(assets.NewHTTPFetcher())
			if err := provisioner.Ensure(modelHub, cfg.ModelPath, manifest); err != nil {
				return fmt.Errorf("provisioning model assets: %w", err)
			}
		} else {
			log.Warn().Err(merr).Msg("no manifest found, skipping asset provisioning")
		}
	}

	gpuLayers := -1
	if accel.Backend() == "cpu" || accel.Backend() == "none" {
		gpuLayers = 0
	}
	eng := mt.New(mt.Config{
		Name:        "scanlate-mt",
		Version:     version,
		ModelPath:   cfg.ModelPath,
		ComputeType: cfg.ComputeType,
		GPULayers:   gpuLayers,
		Languages: []mt.LanguagePair{
			{Client: "en", Model: "eng_Latn"},
			{Client: "ja", Model: "jpn_Jpan"},
			{Client: "zh-cn", Model: "zho_Hans"},
			{Client: "zh-tw", Model: "zho_Hant"},
			{Client: "ko", Model: "kor_Hang"},
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), logging.StartupTimeout)
	defer cancel()
	if err := eng.Load(ctx); err != nil {
		return fmt.Errorf("loading translation engine: %w", err)
	}
	if err := eng.Warmup(ctx); err != nil {
		log.Warn().Err(err).Msg("warmup reported an error, continuing")
	}

	mon := monitor.New(monitor.DefaultInterval, accel, log)
	mon.Start()
	defer mon.Stop(context.Background())

	agg := aggregator.New(eng, mt.MaxBatchSize, nil) // nil tier = always LoadLow until wired to mon

	lis, err := rpcserver.Listen(cfg.Host, cfg.Port)
	if err != nil {
		return err
	}
	srv := rpcserver.NewMTServer(eng, agg, mon, accel, log)

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

	agg.Close()
	log.Info().Msg("shutdown complete")
	return nil
}
