package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

const MethodAuthorizeCaller = "authorizeCaller"

// Data is the typed binding of the FlightSuretyData contract.
type Data struct {
	*Contract
}

func NewData(address common.Address, artifact string, backend Backend) (*Data, error) {
	parsed, err := LoadABI(artifact, DataABIName)
	if err != nil {
		return nil, err
	}

	return &Data{Contract: NewContract("FlightSuretyData", address, parsed, backend)}, nil
}

// AuthorizeCaller lets caller (the App contract) write to the data contract.
func (d *Data) AuthorizeCaller(ctx context.Context, owner, caller common.Address) error {
	_, err := d.Send(ctx, SendOpts{From: owner}, MethodAuthorizeCaller, caller)
	return err
}

func (d *Data) IsOperational(ctx context.Context, from common.Address) (bool, error) {
	out, err := d.Call(ctx, from, MethodIsOperational)
	if err != nil {
		return false, err
	}

	return asBool(out)
}
