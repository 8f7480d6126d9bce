package types

import (
	errorsmod "cosmossdk.io/errors"
)

// ModuleName is the codespace of the registered errors.
const ModuleName = "flightsurety"

// errors
var (
	ErrChainQuery          = errorsmod.Register(ModuleName, 2, "chain query failed")
	ErrChainTransaction    = errorsmod.Register(ModuleName, 3, "chain transaction failed")
	ErrRegistrationFailure = errorsmod.Register(ModuleName, 4, "oracle registration failed")
	ErrInvalidConfig       = errorsmod.Register(ModuleName, 5, "invalid config")
	ErrInvalidInsurance    = errorsmod.Register(ModuleName, 6, "invalid insurance amount")
	ErrAlreadyBootstrapped = errorsmod.Register(ModuleName, 7, "oracle registry already bootstrapped")
	ErrNoAirlines          = errorsmod.Register(ModuleName, 8, "no airlines available")
	ErrUnknownMethod       = errorsmod.Register(ModuleName, 9, "unknown contract method")
	ErrNotEnoughAccounts   = errorsmod.Register(ModuleName, 10, "not enough node accounts")
)
