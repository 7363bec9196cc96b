package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"coop-energy/energy"
)

func main() {
	app := &cli.App{
		Name:  "coop-energy",
		Usage: "Energy cooperative meter-data service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML config file path",
				EnvVars: []string{"COOP_ENERGY_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			ingestCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// resolveConfig merges the optional YAML file with CLI flags; a flag set
// on the command line wins over the file.
func resolveConfig(c *cli.Context) (energy.Config, error) {
	cfg := energy.DefaultConfig()
	if path := c.String("config"); path != "" {
		loaded, err := energy.LoadConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = *loaded
	}
	if c.IsSet("listen") {
		cfg.ListenAddr = c.String("listen")
	}
	if c.IsSet("storage-dir") {
		cfg.StorageDir = c.String("storage-dir")
	}
	if c.IsSet("db") {
		cfg.ManifestDB = c.String("db")
	}
	if cfg.ManifestDB == "" {
		cfg.ManifestDB = filepath.Join(cfg.StorageDir, "manifest.db")
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	return cfg, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the upload/listing HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Value: ":8080",
				Usage: "HTTP listen address",
			},
			&cli.StringFlag{
				Name:  "storage-dir",
				Value: "storage",
				Usage: "Root directory for stored files",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Manifest database path (default <storage-dir>/manifest.db)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := resolveConfig(c)
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg.Debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := energy.OpenStore(cfg.StorageDir, cfg.ManifestDB, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			srv := energy.NewServer(store, logger)
			logger.Info("listening",
				zap.String("addr", cfg.ListenAddr),
				zap.String("storage", cfg.StorageDir))
			return srv.Router().Run(cfg.ListenAddr)
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Normalize export files locally and print the batch summary",
		ArgsUsage: "<file or glob> ...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "records",
				Usage: "Include the full record set in the output",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Print a live progress count to stderr",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("no input files", 2)
			}
			var files []energy.SourceFile
			for _, arg := range c.Args().Slice() {
				matches, err := filepath.Glob(arg)
				if err != nil {
					return err
				}
				if len(matches) == 0 {
					matches = []string{arg}
				}
				for _, m := range matches {
					files = append(files, energy.PathSource(m))
				}
			}

			var progress energy.ProgressFunc
			if c.Bool("progress") {
				total := len(files)
				progress = func(n int) {
					fmt.Fprintf(os.Stderr, "\rprocessed %d/%d", n, total)
				}
			}
			result := energy.IngestBatch(files, progress)
			if progress != nil {
				fmt.Fprintln(os.Stderr)
			}
			if !c.Bool("records") {
				result.Records = []energy.EnergyRecord{}
			}
			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
