package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GPTx-global/flightsurety/oracle/config"
	"github.com/GPTx-global/flightsurety/oracle/log"
)

const envPrefix = "FLIGHTSURETY"

const (
	flagHome        = "home"
	flagEndpoint    = "endpoint"
	flagAppAddress  = "app-address"
	flagDataAddress = "data-address"
	flagListen      = "listen"
	flagLogLevel    = "log-level"
	flagLogFile     = "log-file"
)

// NewRootCmd builds the flightsurety command tree. Flags and FLIGHTSURETY_*
// environment variables take precedence over <home>/config.toml.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "flightsurety",
		Short:         "FlightSurety oracle daemon and dapp client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(v)
		},
	}

	flags := root.PersistentFlags()
	flags.String(flagHome, config.DefaultHome(), "directory holding config.toml and logs")
	flags.String(flagEndpoint, "", "chain JSON-RPC endpoint (ws:// or http://)")
	flags.String(flagAppAddress, "", "FlightSuretyApp contract address")
	flags.String(flagDataAddress, "", "FlightSuretyData contract address")
	flags.String(flagListen, "", "HTTP listen address")
	flags.String(flagLogLevel, "", "log level (debug, info, warn, error)")
	flags.Bool(flagLogFile, false, "write logs to <home>/logs instead of stdout")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}

	root.AddCommand(
		newOracledCmd(v),
		newConfigCmd(),
		newDappCmd(),
	)

	return root
}

func loadConfig(v *viper.Viper) error {
	home := v.GetString(flagHome)
	if err := config.Load(home); err != nil {
		return err
	}

	config.Override(
		v.GetString(flagEndpoint),
		v.GetString(flagAppAddress),
		v.GetString(flagDataAddress),
		v.GetString(flagListen),
	)

	level := v.GetString(flagLogLevel)
	if level == "" {
		level = config.LogLevel()
	}
	return log.SetLevel(level)
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.Dump()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	return cmd
}
