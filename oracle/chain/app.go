package chain

import (
	"context"
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/GPTx-global/flightsurety/oracle/log"
	flighttypes "github.com/GPTx-global/flightsurety/oracle/types"
)

// FlightSuretyApp methods and events.
const (
	MethodIsOperational          = "isOperational"
	MethodRegistrationFee        = "REGISTRATION_FEE"
	MethodAirlineRegistrationFee = "AirlineRegistrationFee"
	MethodRegisterOracle         = "registerOracle"
	MethodGetMyIndexes           = "getMyIndexes"
	MethodRegisterFlight         = "registerFlight"
	MethodGetFlightStatus        = "getFlightStatus"
	MethodSubmitOracleResponse   = "submitOracleResponse"
	MethodRegisterAirline        = "registerAirline"
	MethodIsAirlineRegistered    = "IsAirlineRegistered"
	MethodListRegisteredAirlines = "ListRegistredAirline"
	MethodSubmitFunding          = "submitFunding"
	MethodSubmitPurchase         = "submitPurchase"
	MethodFetchFlightStatus      = "fetchFlightStatus"
	MethodSubmitWithdrawal       = "submitWithdrawal"
	MethodGetAccountCredit       = "getAccountCredit"

	EventOracleRequest    = "OracleRequest"
	EventOracleReport     = "OracleReport"
	EventFlightStatusInfo = "FlightStatusInfo"
)

// App is the typed binding of the FlightSuretyApp contract.
type App struct {
	*Contract
}

func NewApp(address common.Address, artifact string, backend Backend) (*App, error) {
	parsed, err := LoadABI(artifact, AppABIName)
	if err != nil {
		return nil, err
	}

	return &App{Contract: NewContract("FlightSuretyApp", address, parsed, backend)}, nil
}

func (a *App) IsOperational(ctx context.Context, from common.Address) (bool, error) {
	out, err := a.Call(ctx, from, MethodIsOperational)
	if err != nil {
		return false, err
	}

	return asBool(out)
}

// RegistrationFee is the oracle registration fee in wei.
func (a *App) RegistrationFee(ctx context.Context) (*big.Int, error) {
	out, err := a.Call(ctx, common.Address{}, MethodRegistrationFee)
	if err != nil {
		return nil, err
	}

	return asBigInt(out)
}

// AirlineRegistrationFee is the airline funding amount in wei.
func (a *App) AirlineRegistrationFee(ctx context.Context) (*big.Int, error) {
	out, err := a.Call(ctx, common.Address{}, MethodAirlineRegistrationFee)
	if err != nil {
		return nil, err
	}

	return asBigInt(out)
}

func (a *App) RegisterOracle(ctx context.Context, from common.Address, fee *big.Int) error {
	opts := SendOpts{From: from, Value: fee}

	gas, err := a.EstimateGas(ctx, opts, MethodRegisterOracle)
	if err != nil {
		return err
	}
	opts.Gas = gas

	_, err = a.Send(ctx, opts, MethodRegisterOracle)
	return err
}

func (a *App) GetMyIndexes(ctx context.Context, from common.Address) ([]uint8, error) {
	out, err := a.Call(ctx, from, MethodGetMyIndexes)
	if err != nil {
		return nil, err
	}

	return asUint8s(out)
}

// RegisterFlight registers flight at timestamp (unix seconds) from the
// airline account. Estimation and send use the same arguments.
func (a *App) RegisterFlight(ctx context.Context, airline common.Address, flight string, timestamp *big.Int) error {
	opts := SendOpts{From: airline}

	gas, err := a.EstimateGas(ctx, opts, MethodRegisterFlight, flight, timestamp)
	if err != nil {
		return err
	}
	opts.Gas = gas

	_, err = a.Send(ctx, opts, MethodRegisterFlight, flight, timestamp)
	return err
}

func (a *App) GetFlightStatus(ctx context.Context, airline common.Address, flight string, timestamp *big.Int) (uint8, error) {
	out, err := a.Call(ctx, common.Address{}, MethodGetFlightStatus, flight, timestamp, airline)
	if err != nil {
		return 0, err
	}

	return asUint8(out)
}

func (a *App) SubmitOracleResponse(ctx context.Context, resp flighttypes.OracleResponse) error {
	_, err := a.Send(ctx, SendOpts{From: resp.Oracle}, MethodSubmitOracleResponse,
		resp.Index, resp.Airline, resp.Flight, resp.Timestamp, resp.StatusCode)
	return err
}

func (a *App) RegisterAirline(ctx context.Context, from, airline common.Address) error {
	_, err := a.Send(ctx, SendOpts{From: from}, MethodRegisterAirline, airline)
	return err
}

func (a *App) IsAirlineRegistered(ctx context.Context, airline common.Address) (bool, error) {
	out, err := a.Call(ctx, common.Address{}, MethodIsAirlineRegistered, airline)
	if err != nil {
		return false, err
	}

	return asBool(out)
}

func (a *App) ListRegisteredAirlines(ctx context.Context, from common.Address) ([]common.Address, error) {
	out, err := a.Call(ctx, from, MethodListRegisteredAirlines)
	if err != nil {
		return nil, err
	}

	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected output count %d", len(out))
	}
	airlines, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", out[0])
	}

	return airlines, nil
}

func (a *App) SubmitFunding(ctx context.Context, from common.Address, value *big.Int) error {
	_, err := a.Send(ctx, SendOpts{From: from, Value: value}, MethodSubmitFunding)
	return err
}

func (a *App) SubmitPurchase(ctx context.Context, passenger, airline common.Address, flight string, timestamp, value *big.Int) (*types.Receipt, error) {
	return a.Send(ctx, SendOpts{From: passenger, Value: value}, MethodSubmitPurchase, airline, flight, timestamp)
}

func (a *App) FetchFlightStatus(ctx context.Context, from, airline common.Address, flight string, timestamp *big.Int) (*types.Receipt, error) {
	return a.Send(ctx, SendOpts{From: from}, MethodFetchFlightStatus, airline, flight, timestamp)
}

func (a *App) SubmitWithdrawal(ctx context.Context, passenger common.Address) (*types.Receipt, error) {
	return a.Send(ctx, SendOpts{From: passenger}, MethodSubmitWithdrawal)
}

func (a *App) GetAccountCredit(ctx context.Context, passenger common.Address) (*big.Int, error) {
	out, err := a.Call(ctx, passenger, MethodGetAccountCredit, passenger)
	if err != nil {
		return nil, err
	}

	return asBigInt(out)
}

type oracleRequestLog struct {
	Index     uint8
	Airline   common.Address
	Flight    string
	Timestamp *big.Int
}

// DecodeOracleRequest turns an OracleRequest log into a StatusRequestEvent.
func (a *App) DecodeOracleRequest(l types.Log) (flighttypes.StatusRequestEvent, error) {
	var raw oracleRequestLog
	if err := a.UnpackLog(&raw, EventOracleRequest, l); err != nil {
		return flighttypes.StatusRequestEvent{}, fmt.Errorf("failed to decode %s: %w", EventOracleRequest, err)
	}

	return flighttypes.StatusRequestEvent{
		Index:       raw.Index,
		Airline:     raw.Airline,
		Flight:      raw.Flight,
		Timestamp:   raw.Timestamp,
		BlockNumber: l.BlockNumber,
		TxHash:      l.TxHash,
		LogIndex:    l.Index,
	}, nil
}

// WatchOracleRequests streams decoded OracleRequest events from fromBlock.
// Logs that fail to decode are logged and skipped.
func (a *App) WatchOracleRequests(ctx context.Context, fromBlock uint64, sink chan<- flighttypes.StatusRequestEvent) (event.Subscription, error) {
	logs := make(chan types.Log, 128)
	sub, err := a.Watch(ctx, EventOracleRequest, fromBlock, logs)
	if err != nil {
		return nil, err
	}

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()

		for {
			select {
			case l := <-logs:
				ev, err := a.DecodeOracleRequest(l)
				if err != nil {
					log.Errorf("skipping log %s:%d: %v", l.TxHash.Hex(), l.Index, err)
					continue
				}
				select {
				case sink <- ev:
				case <-quit:
					return nil
				}
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

func single(out []any) (any, error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected output count %d", len(out))
	}
	return out[0], nil
}

func asBool(out []any) (bool, error) {
	v, err := single(out)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected output type %T", v)
	}
	return b, nil
}

func asBigInt(out []any) (*big.Int, error) {
	v, err := single(out)
	if err != nil {
		return nil, err
	}
	n, ok := v.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", v)
	}
	return n, nil
}

func asUint8(out []any) (uint8, error) {
	v, err := single(out)
	if err != nil {
		return 0, err
	}
	n, ok := v.(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected output type %T", v)
	}
	return n, nil
}

// asUint8s accepts both uint8[N] and uint8[] outputs.
func asUint8s(out []any) ([]uint8, error) {
	v, err := single(out)
	if err != nil {
		return nil, err
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Array && rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("unexpected output type %T", v)
	}
	if rv.Type().Elem().Kind() != reflect.Uint8 {
		return nil, fmt.Errorf("unexpected element type %s", rv.Type().Elem())
	}

	res := make([]uint8, rv.Len())
	for i := range res {
		res[i] = uint8(rv.Index(i).Uint())
	}
	return res, nil
}
