package main

import (
	"context"
	"fmt"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/GPTx-global/flightsurety/oracle/chain"
	"github.com/GPTx-global/flightsurety/oracle/config"
	"github.com/GPTx-global/flightsurety/oracle/dapp"
	"github.com/GPTx-global/flightsurety/oracle/types"
)

const (
	flagServer    = "server"
	flagPassenger = "passenger"
)

// dappEnv is what every dapp subcommand needs: a bound client and the
// node's accounts.
type dappEnv struct {
	client   *chain.Client
	dapp     *dapp.Client
	accounts []common.Address
	server   string
}

func (e *dappEnv) close() {
	e.client.Close()
}

// passenger resolves an address or an index into the node's accounts.
func (e *dappEnv) passenger(value string) (common.Address, error) {
	if common.IsHexAddress(value) {
		return common.HexToAddress(value), nil
	}

	i, err := strconv.Atoi(value)
	if err != nil || i < 0 || i >= len(e.accounts) {
		return common.Address{}, errorsmod.Wrapf(types.ErrNotEnoughAccounts, "passenger %q", value)
	}
	return e.accounts[i], nil
}

func (e *dappEnv) flight(ctx context.Context, number string) (types.SyntheticFlight, error) {
	catalog, err := e.dapp.CurrentCatalog(ctx, e.server)
	if err != nil {
		return types.SyntheticFlight{}, err
	}

	f, ok := dapp.FindFlight(catalog, number)
	if !ok {
		return types.SyntheticFlight{}, fmt.Errorf("flight %s is not in the current catalog, run `dapp flights` first", number)
	}
	return f, nil
}

func openDapp(cmd *cobra.Command) (*dappEnv, error) {
	ctx := cmd.Context()

	if !common.IsHexAddress(config.AppAddress()) {
		return nil, errorsmod.Wrapf(types.ErrInvalidConfig, "app address %q", config.AppAddress())
	}

	clt, err := chain.Dial(ctx, config.ChainEndpoint())
	if err != nil {
		return nil, err
	}

	app, err := chain.NewApp(common.HexToAddress(config.AppAddress()), config.AppArtifact(), clt)
	if err != nil {
		clt.Close()
		return nil, err
	}

	accounts, err := clt.Accounts(ctx)
	if err != nil {
		clt.Close()
		return nil, err
	}
	if config.OwnerIndex() >= len(accounts) {
		clt.Close()
		return nil, errorsmod.Wrapf(types.ErrNotEnoughAccounts, "owner index %d", config.OwnerIndex())
	}

	d, err := dapp.New(app, accounts[config.OwnerIndex()], config.MaxInsuranceEther())
	if err != nil {
		clt.Close()
		return nil, err
	}

	server, _ := cmd.Flags().GetString(flagServer)
	return &dappEnv{client: clt, dapp: d, accounts: accounts, server: server}, nil
}

func newDappCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dapp",
		Short: "Passenger actions against the FlightSurety contracts",
	}
	cmd.PersistentFlags().String(flagServer, "http://localhost:3000", "oracle daemon HTTP address")

	cmd.AddCommand(
		newOperationalCmd(),
		newFlightsCmd(),
		newBuyCmd(),
		newStatusCmd(),
		newCreditCmd(),
		newWithdrawCmd(),
	)
	return cmd
}

func addPassengerFlag(cmd *cobra.Command) {
	cmd.Flags().String(flagPassenger, "4", "passenger address or node account index")
}

func newOperationalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operational",
		Short: "Show whether the App contract is operational",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openDapp(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			ok, err := env.dapp.IsOperational(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "operational: %t\n", ok)

			airlines, err := env.dapp.RegisteredAirlines(cmd.Context())
			if err != nil {
				return err
			}
			for _, a := range airlines {
				fmt.Fprintf(cmd.OutOrStdout(), "airline: %s\n", a.Hex())
			}
			return nil
		},
	}
}

func newFlightsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flights",
		Short: "Fetch a fresh flight catalog from the oracle daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openDapp(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			catalog, err := env.dapp.FetchCatalog(cmd.Context(), env.server)
			if err != nil {
				return err
			}
			for _, f := range catalog {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s %d\n", f.FlightNumber, f.Airline.Hex(), f.Timestamp)
			}
			return nil
		},
	}
}

func newBuyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy [flight] [amount-ether]",
		Short: "Buy insurance for a flight of the current catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openDapp(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			value, _ := cmd.Flags().GetString(flagPassenger)
			passenger, err := env.passenger(value)
			if err != nil {
				return err
			}

			f, err := env.flight(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			receipt, err := env.dapp.BuyInsurance(cmd.Context(), passenger, f, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "insured %s for %s ether (tx %s)\n", f.Key(), args[1], receipt.TxHash.Hex())
			return nil
		},
	}
	addPassengerFlag(cmd)
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [flight]",
		Short: "Ask the oracles for the status of a flight of the current catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openDapp(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			f, err := env.flight(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			receipt, err := env.dapp.FetchFlightStatus(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status requested for %s (tx %s)\n", f.Key(), receipt.TxHash.Hex())

			code, err := env.dapp.FlightStatus(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "current status: %d (%s)\n", code, types.StatusName(code))
			return nil
		},
	}
}

func newCreditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credit",
		Short: "Show a passenger's payout credit in ether",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openDapp(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			value, _ := cmd.Flags().GetString(flagPassenger)
			passenger, err := env.passenger(value)
			if err != nil {
				return err
			}

			credit, err := env.dapp.Credit(cmd.Context(), passenger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s ether\n", passenger.Hex(), credit)
			return nil
		},
	}
	addPassengerFlag(cmd)
	return cmd
}

func newWithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw a passenger's payout credit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openDapp(cmd)
			if err != nil {
				return err
			}
			defer env.close()

			value, _ := cmd.Flags().GetString(flagPassenger)
			passenger, err := env.passenger(value)
			if err != nil {
				return err
			}

			receipt, err := env.dapp.Withdraw(cmd.Context(), passenger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "withdrawn for %s (tx %s)\n", passenger.Hex(), receipt.TxHash.Hex())
			return nil
		},
	}
	addPassengerFlag(cmd)
	return cmd
}
