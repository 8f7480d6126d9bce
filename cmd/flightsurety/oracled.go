package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GPTx-global/flightsurety/oracle/config"
	"github.com/GPTx-global/flightsurety/oracle/daemon"
	"github.com/GPTx-global/flightsurety/oracle/log"
)

func newOracledCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "oracled",
		Short: "Register the simulated oracles and answer flight status requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if v.GetBool(flagLogFile) {
				log.ResetLogger(config.Home())
			}
			config.Print()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			d, err := daemon.New(ctx)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}

			if err := d.Start(); err != nil {
				cancel()
				d.Stop()
				return fmt.Errorf("failed to start daemon: %w", err)
			}

			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(c)

			var runErr error
			select {
			case sig := <-c:
				log.Infof("received %s, shutting down", sig)
			case runErr = <-d.Err():
				log.Errorf("%v", runErr)
			}

			cancel()
			d.Stop()
			return runErr
		},
	}
}
