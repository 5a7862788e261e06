package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelbridge/internal/config"
)

// options holds the resolved configuration shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	dataDir    string
	modelID    string

	cfg config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "modelbridge",
		Short:         "Serve and drive a single on-device language model session",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "Config file (.yaml, .yml, .json or .toml)")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults MODELBRIDGE_LOG_LEVEL or info)")
	root.PersistentFlags().StringVar(&o.logFormat, "log-format", "json", "Log format: json|console")
	root.PersistentFlags().StringVar(&o.dataDir, "data-dir", "", "Root directory for model files and caches")
	root.PersistentFlags().StringVar(&o.modelID, "model", "", "Model id bound on first use")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return o.resolve(cmd.ErrOrStderr())
	}

	root.AddCommand(
		newServeCmd(o),
		newCompleteCmd(o),
		newEmbedCmd(o),
		newModelsCmd(o),
		newDownloadCmd(o),
		newEventsCmd(o),
	)
	return root
}

// resolve layers configuration: defaults, then the config file, then
// MODELBRIDGE_* variables (including a .env file), then flags.
func (o *options) resolve(logOut io.Writer) error {
	cfg := config.Defaults()
	if o.configPath != "" {
		fileCfg, err := config.Load(o.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = config.Merge(cfg, fileCfg)
	}
	envCfg, err := config.LoadEnv(".env")
	if err != nil {
		return err
	}
	cfg = config.Merge(cfg, envCfg)
	cfg = config.Merge(cfg, config.Config{
		LogLevel: o.logLevel,
		DataDir:  o.dataDir,
		ModelID:  o.modelID,
	})
	o.cfg = cfg
	o.log = newLogger(logOut, cfg.LogLevel, o.logFormat)
	return nil
}

func newLogger(out io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
