package registry

import (
	"context"
	"math/big"
	"sync/atomic"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"

	"github.com/GPTx-global/flightsurety/oracle/log"
	"github.com/GPTx-global/flightsurety/oracle/metrics"
	"github.com/GPTx-global/flightsurety/oracle/types"
)

// OracleContract is the part of the App contract the registry drives.
type OracleContract interface {
	RegistrationFee(ctx context.Context) (*big.Int, error)
	RegisterOracle(ctx context.Context, from common.Address, fee *big.Int) error
	GetMyIndexes(ctx context.Context, from common.Address) ([]uint8, error)
}

// Registry is the pool of simulated oracle identities. It is filled once by
// Register and only read afterwards, so readers take no locks.
type Registry struct {
	contract OracleContract

	bootstrapped atomic.Bool
	identities   []types.OracleIdentity
	failed       []common.Address
}

func New(contract OracleContract) *Registry {
	return &Registry{contract: contract}
}

// Register registers every account as an oracle, one at a time. Accounts
// that fail are logged and left out. It returns the number registered and
// fails only when the registration fee cannot be read.
func (r *Registry) Register(ctx context.Context, accounts []common.Address) (int, error) {
	if !r.bootstrapped.CompareAndSwap(false, true) {
		return 0, types.ErrAlreadyBootstrapped
	}

	fee, err := r.contract.RegistrationFee(ctx)
	if err != nil {
		return 0, errorsmod.Wrapf(types.ErrRegistrationFailure, "read registration fee: %v", err)
	}
	log.Infof("registering %d oracles, fee %s wei", len(accounts), fee)

	seen := make(map[common.Address]struct{}, len(accounts))
	for _, account := range accounts {
		if ctx.Err() != nil {
			log.Errorf("oracle registration interrupted: %v", ctx.Err())
			break
		}
		if _, ok := seen[account]; ok {
			log.Debugf("skipping duplicate oracle account %s", account.Hex())
			continue
		}
		seen[account] = struct{}{}

		identity, err := r.registerOne(ctx, account, fee)
		if err != nil {
			log.Errorf("%v", err)
			r.failed = append(r.failed, account)
			metrics.OracleRegistrations.WithLabelValues(metrics.ResultFailure).Inc()
			continue
		}

		r.identities = append(r.identities, identity)
		metrics.OracleRegistrations.WithLabelValues(metrics.ResultSuccess).Inc()
		log.Infof("oracle registered: %s", identity)
	}

	metrics.OraclesRegistered.Set(float64(len(r.identities)))
	log.Infof("oracle registry ready: %d registered, %d failed", len(r.identities), len(r.failed))

	return len(r.identities), nil
}

func (r *Registry) registerOne(ctx context.Context, account common.Address, fee *big.Int) (types.OracleIdentity, error) {
	if err := r.contract.RegisterOracle(ctx, account, fee); err != nil {
		return types.OracleIdentity{}, errorsmod.Wrapf(types.ErrRegistrationFailure, "oracle %s: %v", account.Hex(), err)
	}

	indexes, err := r.contract.GetMyIndexes(ctx, account)
	if err != nil {
		return types.OracleIdentity{}, errorsmod.Wrapf(types.ErrRegistrationFailure, "oracle %s indexes: %v", account.Hex(), err)
	}
	if len(indexes) == 0 {
		return types.OracleIdentity{}, errorsmod.Wrapf(types.ErrRegistrationFailure, "oracle %s has no indexes", account.Hex())
	}

	return types.OracleIdentity{Address: account, Indexes: indexes}, nil
}

// Identities returns the registered identities in registration order. The
// slice is shared and must not be modified.
func (r *Registry) Identities() []types.OracleIdentity {
	return r.identities
}

func (r *Registry) Len() int {
	return len(r.identities)
}

// Failed returns the accounts whose registration failed.
func (r *Registry) Failed() []common.Address {
	return r.failed
}

// Holding returns the identities that hold index.
func (r *Registry) Holding(index uint8) []types.OracleIdentity {
	var res []types.OracleIdentity
	for _, id := range r.identities {
		if id.Has(index) {
			res = append(res, id)
		}
	}
	return res
}
