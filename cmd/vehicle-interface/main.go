package main

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vehicle-interface/internal/config"
	"vehicle-interface/internal/logger"
)

// Set at link time.
var version = "dev"

// rootOptions holds the persistent flags and the viper instance every
// subcommand reads its configuration from.
type rootOptions struct {
	configFile string
	logLevel   string
	format     string
	v          *viper.Viper
}

var validFormats = []string{"text", "json"}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:           "vehicle-interface",
		Short:         "Hyundai, Kia and Genesis car interface",
		Long:          "Detects the CAN bus layout of the car and runs the per-cycle button, alert and engagement logic.",
		Version:       version,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.format) {
				return errors.Errorf("invalid format %q: must be one of %v", opts.format, validFormats)
			}
			if err := initConfig(opts); err != nil {
				return err
			}
			return opts.v.BindPFlags(cmd.Flags())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is $HOME/.vehicle-interface.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, config.KeyLogLevel, "info", "log level (none, error, warn, info, debug)")
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newRecordCommand(opts))
	cmd.AddCommand(newResolveCommand(opts))
	cmd.AddCommand(newModelsCommand(opts))
	cmd.AddCommand(newSessionsCommand(opts))

	return cmd
}

// initConfig reads the config file and the VI_ environment. A missing
// config file is not an error.
func initConfig(opts *rootOptions) error {
	v := opts.v
	if opts.configFile != "" {
		v.SetConfigFile(opts.configFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return errors.Wrap(err, "finding home directory")
		}
		v.AddConfigPath(home)
		v.SetConfigName(".vehicle-interface")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("VI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && opts.configFile == "" {
			return nil
		}
		return errors.Wrap(err, "reading config file")
	}
	return nil
}

// newLogger picks the log format for where we run. Under systemd the journal
// adds its own timestamps.
func newLogger(w io.Writer, level string) (*logger.Logger, error) {
	lvl, err := logger.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var stdLogger *log.Logger
	if os.Getenv("INVOCATION_ID") != "" {
		stdLogger = log.New(w, "", 0)
	} else {
		stdLogger = log.New(w, "", log.LstdFlags|log.Lmicroseconds|log.Lmsgprefix)
	}
	return logger.NewLogger(stdLogger, lvl), nil
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}
