package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bagtoad/tfbind"
	"github.com/bagtoad/tfbind/internal/config"
	"github.com/bagtoad/tfbind/internal/logging"
	"github.com/bagtoad/tfbind/internal/nativelib"
	"github.com/bagtoad/tfbind/internal/ortengine"
	"github.com/bagtoad/tfbind/internal/platform"
	"github.com/bagtoad/tfbind/internal/report"
	"github.com/bagtoad/tfbind/internal/scanner"
)

const version = "v0.1.0"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "tfbind",
		Short: "Locate, extract and load the bundled native ML libraries",
		Long: `tfbind resolves the native libraries bundled for this platform,
extracts them once into a private directory, loads them in dependency
order and records the directory (~/.tfbind/native-dir) so later runs
can reuse it.`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default ~/.tfbind/config.yaml)")
	flags.String("resources", "", "Directory holding the native library bundle (default: embedded)")
	flags.String("engine", config.EngineNative, "Native engine: native or onnxruntime")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")
	flags.String("temp-dir", "", "Parent directory for fresh extractions (default: system temp)")

	loadConfig := func(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return nil, nil, err
		}
		log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return nil, nil, err
		}
		return cfg, log, nil
	}

	var xla bool
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Load the native libraries and print where they came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runLoad(cmd.OutOrStdout(), cfg, log, xla)
		},
	}
	loadCmd.Flags().BoolVar(&xla, "xla", false, "Enable accelerated linear algebra after loading")

	platformCmd := &cobra.Command{
		Use:   "platform",
		Short: "Show the detected platform and the candidate resources per library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			report.PrintCandidates(cmd.OutOrStdout(), platform.Current(), cfg.Version, libraries(cfg))
			return nil
		},
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the recorded extraction directory and its libraries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runInspect(cmd.OutOrStdout(), cfg)
		},
	}

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete the recorded extraction directory and the metadata file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runClean(cmd.OutOrStdout(), cfg)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tfbind %s (native %s)\n", version, nativelib.DefaultVersion)
		},
	}

	rootCmd.AddCommand(loadCmd, platformCmd, inspectCmd, cleanCmd, versionCmd)
	return rootCmd
}

func libraries(cfg *config.Config) []nativelib.Library {
	if cfg.Engine == config.EngineOnnxRuntime {
		return ortengine.Libraries
	}
	return cfg.Libraries()
}

func runLoad(out io.Writer, cfg *config.Config, log *logrus.Logger, xla bool) error {
	if err := tfbind.Configure(tfbind.Options{
		ResourcesDir: cfg.ResourcesDir,
		AppDir:       cfg.Home,
		TempDir:      cfg.TempDir,
		Version:      cfg.Version,
		OpLibraries:  cfg.OpLibraries,
		Engine:       cfg.Engine,
		Logger:       log,
	}); err != nil {
		return err
	}
	defer tfbind.Close()

	p := platform.Current()
	fmt.Fprintf(out, "Loading native libraries for %s...\n", p)
	if err := tfbind.Load(); err != nil {
		return err
	}

	if xla {
		if cfg.Engine != config.EngineNative {
			return errors.New("--xla requires the native engine")
		}
		if err := tfbind.EnableXLA(); err != nil {
			return fmt.Errorf("cannot enable XLA: %w", err)
		}
		fmt.Fprintln(out, "XLA enabled")
	}

	report.Print(out, p, tfbind.Result())
	return nil
}

func runInspect(out io.Writer, cfg *config.Config) error {
	meta, err := nativelib.NewFileMetadata(cfg.Home)
	if err != nil {
		return err
	}
	dir, err := meta.ReadDir()
	if err != nil {
		return err
	}
	if dir == "" {
		report.PrintDirectory(out, meta.Path, "", nil, nil)
		return nil
	}
	scan, err := scanner.Scan(dir)
	report.PrintDirectory(out, meta.Path, dir, scan, err)
	return nil
}

func runClean(out io.Writer, cfg *config.Config) error {
	meta, err := nativelib.NewFileMetadata(cfg.Home)
	if err != nil {
		return err
	}
	dir, err := meta.ReadDir()
	if err != nil {
		return err
	}
	if dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("cannot remove %s: %w", dir, err)
		}
		fmt.Fprintf(out, "Removed %s\n", dir)
	}
	if err := meta.Remove(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %s\n", meta.Path)
	return nil
}
