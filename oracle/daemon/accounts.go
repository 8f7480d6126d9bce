package daemon

import (
	"context"
	"math/big"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/GPTx-global/flightsurety/oracle/log"
	"github.com/GPTx-global/flightsurety/oracle/types"
)

// Accounts are the node accounts split into the roles the daemon plays.
type Accounts struct {
	Owner    common.Address
	Airlines []common.Address
	Oracles  []common.Address
}

// ResolveAccounts slices the node's accounts into owner, airlines and oracles.
// The oracle range is clamped to the accounts available.
func ResolveAccounts(all []common.Address, ownerIndex, airlineStart, airlineCount, oracleStart, oracleCount int) (Accounts, error) {
	if ownerIndex >= len(all) {
		return Accounts{}, errorsmod.Wrapf(types.ErrNotEnoughAccounts, "owner index %d, %d accounts", ownerIndex, len(all))
	}
	if airlineStart+airlineCount > len(all) {
		return Accounts{}, errorsmod.Wrapf(types.ErrNotEnoughAccounts, "airlines [%d, %d), %d accounts", airlineStart, airlineStart+airlineCount, len(all))
	}

	oracleEnd := min(oracleStart+oracleCount, len(all))
	if oracleStart >= oracleEnd {
		return Accounts{}, errorsmod.Wrapf(types.ErrNotEnoughAccounts, "oracles from %d, %d accounts", oracleStart, len(all))
	}
	if oracleEnd-oracleStart < oracleCount {
		log.Warnf("only %d of %d oracle accounts available", oracleEnd-oracleStart, oracleCount)
	}

	return Accounts{
		Owner:    all[ownerIndex],
		Airlines: append([]common.Address(nil), all[airlineStart:airlineStart+airlineCount]...),
		Oracles:  append([]common.Address(nil), all[oracleStart:oracleEnd]...),
	}, nil
}

type AirlineContract interface {
	AirlineRegistrationFee(ctx context.Context) (*big.Int, error)
	SubmitFunding(ctx context.Context, from common.Address, value *big.Int) error
	RegisterAirline(ctx context.Context, from, airline common.Address) error
	IsAirlineRegistered(ctx context.Context, airline common.Address) (bool, error)
}

type CallerAuthorizer interface {
	AuthorizeCaller(ctx context.Context, owner, caller common.Address) error
}

// BootstrapAirlines prepares the contracts so the airline pool can register
// flights: the App contract is authorized on the data contract, the owner
// funds itself as first airline, and every other airline is registered and
// funded. Every step is best-effort; it returns the airlines that ended up
// registered.
func BootstrapAirlines(ctx context.Context, data CallerAuthorizer, app AirlineContract, appAddress common.Address, accounts Accounts) []common.Address {
	if err := data.AuthorizeCaller(ctx, accounts.Owner, appAddress); err != nil {
		log.Errorf("cannot authorize App contract %s: %v", appAddress.Hex(), err)
	}

	fee, err := app.AirlineRegistrationFee(ctx)
	if err != nil {
		log.Errorf("cannot read airline registration fee: %v", err)
		return nil
	}

	if err := app.SubmitFunding(ctx, accounts.Owner, fee); err != nil {
		log.Errorf("first airline %s funding did not go through: %v", accounts.Owner.Hex(), err)
	}

	var registered []common.Address
	for _, airline := range accounts.Airlines {
		if err := app.RegisterAirline(ctx, accounts.Owner, airline); err != nil {
			log.Errorf("cannot register airline %s: %v", airline.Hex(), err)
			continue
		}
		if err := app.SubmitFunding(ctx, airline, fee); err != nil {
			log.Errorf("airline %s funding did not go through: %v", airline.Hex(), err)
		}

		ok, err := app.IsAirlineRegistered(ctx, airline)
		if err != nil {
			log.Errorf("cannot check airline %s: %v", airline.Hex(), err)
			continue
		}
		if ok {
			registered = append(registered, airline)
		}
		log.Infof("airline %s registered: %t", airline.Hex(), ok)
	}

	return registered
}

// CatalogAirlines picks the airlines flights are generated for: the ones
// confirmed registered, or the configured pool when none could be confirmed.
func CatalogAirlines(registered []common.Address, accounts Accounts) []common.Address {
	if len(registered) > 0 {
		return registered
	}

	log.Warnf("no airline confirmed registered, generating flights for all %d configured airlines", len(accounts.Airlines))
	return accounts.Airlines
}
