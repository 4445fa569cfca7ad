// Package commands holds the cobra CLI.
package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/llm"
	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
	"github.com/joseph-ayodele/invoice-vouchers/internal/ocr"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// options lets tests replace the external providers.
type options struct {
	recognizer ocr.Recognizer
	completer  llm.Completer
}

// env is loaded once per invocation by the root PersistentPreRunE.
type env struct {
	opts       options
	configFile string
	logLevel   string
	cfg        *common.Config
	log        *zap.SugaredLogger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(options{})
}

func newRootCommand(opts options) *cobra.Command {
	e := &env{opts: opts}

	rootCmd := &cobra.Command{
		Use:     "voucherctl",
		Short:   "Turn invoice images into balanced accounting vouchers",
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.log != nil {
				_ = e.log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&e.configFile, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newMigrateCommand(e),
		newProcessCommand(e),
		newListCommand(e),
		newShowCommand(e),
		newExportCommand(e),
		newWatchCommand(e),
		newServeCommand(e),
	)
	return rootCmd
}

func (e *env) load() error {
	cfg, err := common.LoadConfig(e.configFile)
	if err != nil {
		return err
	}
	if e.logLevel != "" {
		cfg.Logging.Level = e.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.log = log
	return nil
}
