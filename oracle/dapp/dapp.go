// Package dapp holds the passenger-side actions of the FlightSurety dapp:
// buying insurance, asking the oracles for a flight status, and reading or
// withdrawing the passenger's credit.
package dapp

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/GPTx-global/flightsurety/oracle/log"
	"github.com/GPTx-global/flightsurety/oracle/types"
)

var weiPerEther = decimal.New(1, 18)

type PassengerContract interface {
	IsOperational(ctx context.Context, from common.Address) (bool, error)
	SubmitPurchase(ctx context.Context, passenger, airline common.Address, flight string, timestamp, value *big.Int) (*ethtypes.Receipt, error)
	FetchFlightStatus(ctx context.Context, from, airline common.Address, flight string, timestamp *big.Int) (*ethtypes.Receipt, error)
	GetFlightStatus(ctx context.Context, airline common.Address, flight string, timestamp *big.Int) (uint8, error)
	GetAccountCredit(ctx context.Context, passenger common.Address) (*big.Int, error)
	SubmitWithdrawal(ctx context.Context, passenger common.Address) (*ethtypes.Receipt, error)
	ListRegisteredAirlines(ctx context.Context, from common.Address) ([]common.Address, error)
}

type Client struct {
	app          PassengerContract
	owner        common.Address
	maxInsurance decimal.Decimal
	httpClient   *http.Client
}

// New creates a client acting for owner on read calls and status requests.
// maxEther caps a single insurance purchase.
func New(app PassengerContract, owner common.Address, maxEther string) (*Client, error) {
	limit, err := decimal.NewFromString(maxEther)
	if err != nil || !limit.IsPositive() {
		return nil, errorsmod.Wrapf(types.ErrInvalidConfig, "insurance cap %q", maxEther)
	}

	return &Client{
		app:          app,
		owner:        owner,
		maxInsurance: limit,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (c *Client) IsOperational(ctx context.Context) (bool, error) {
	return c.app.IsOperational(ctx, c.owner)
}

// BuyInsurance pays amountEther from passenger to insure flight.
func (c *Client) BuyInsurance(ctx context.Context, passenger common.Address, flight types.SyntheticFlight, amountEther string) (*ethtypes.Receipt, error) {
	value, err := c.insuranceValue(amountEther)
	if err != nil {
		return nil, err
	}

	log.Infof("passenger %s buys %s ether of insurance for %s", passenger.Hex(), amountEther, flight.Key())
	return c.app.SubmitPurchase(ctx, passenger, flight.Airline, flight.FlightNumber, flight.TimestampSeconds(), value)
}

func (c *Client) insuranceValue(amountEther string) (*big.Int, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(amountEther))
	if err != nil {
		return nil, errorsmod.Wrapf(types.ErrInvalidInsurance, "amount %q is not a number", amountEther)
	}
	if !amount.IsPositive() {
		return nil, errorsmod.Wrapf(types.ErrInvalidInsurance, "amount %s must be positive", amount)
	}
	if amount.GreaterThan(c.maxInsurance) {
		return nil, errorsmod.Wrapf(types.ErrInvalidInsurance, "amount %s exceeds the %s ether cap", amount, c.maxInsurance)
	}

	wei := ToWei(amount)
	if wei.Sign() == 0 {
		return nil, errorsmod.Wrapf(types.ErrInvalidInsurance, "amount %s is below one wei", amount)
	}
	return wei, nil
}

// FetchFlightStatus asks the oracles to report on flight. The request is
// sent from the owner account and carries no value.
func (c *Client) FetchFlightStatus(ctx context.Context, flight types.SyntheticFlight) (*ethtypes.Receipt, error) {
	return c.app.FetchFlightStatus(ctx, c.owner, flight.Airline, flight.FlightNumber, flight.TimestampSeconds())
}

// FlightStatus reads the status the oracles agreed on so far.
func (c *Client) FlightStatus(ctx context.Context, flight types.SyntheticFlight) (uint8, error) {
	return c.app.GetFlightStatus(ctx, flight.Airline, flight.FlightNumber, flight.TimestampSeconds())
}

// Credit returns the passenger's payout balance in ether.
func (c *Client) Credit(ctx context.Context, passenger common.Address) (decimal.Decimal, error) {
	wei, err := c.app.GetAccountCredit(ctx, passenger)
	if err != nil {
		return decimal.Zero, err
	}

	return FromWei(wei), nil
}

func (c *Client) Withdraw(ctx context.Context, passenger common.Address) (*ethtypes.Receipt, error) {
	return c.app.SubmitWithdrawal(ctx, passenger)
}

func (c *Client) RegisteredAirlines(ctx context.Context) ([]common.Address, error) {
	return c.app.ListRegisteredAirlines(ctx, c.owner)
}

// FetchCatalog asks the server at baseURL for a fresh flight catalog.
func (c *Client) FetchCatalog(ctx context.Context, baseURL string) ([]types.SyntheticFlight, error) {
	return c.getCatalog(ctx, baseURL, "/api/fetchFlights")
}

// CurrentCatalog returns the catalog the server generated last.
func (c *Client) CurrentCatalog(ctx context.Context, baseURL string) ([]types.SyntheticFlight, error) {
	return c.getCatalog(ctx, baseURL, "/api/flights")
}

func (c *Client) getCatalog(ctx context.Context, baseURL, path string) ([]types.SyntheticFlight, error) {
	url := strings.TrimRight(baseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch flights: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch flights: %s", resp.Status)
	}

	var catalog []types.SyntheticFlight
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		return nil, fmt.Errorf("failed to decode flights: %w", err)
	}
	return catalog, nil
}

// FindFlight returns the catalog entry with the given flight number.
func FindFlight(catalog []types.SyntheticFlight, number string) (types.SyntheticFlight, bool) {
	for _, f := range catalog {
		if strings.EqualFold(f.FlightNumber, number) {
			return f, true
		}
	}
	return types.SyntheticFlight{}, false
}

// ToWei converts ether to wei, dropping anything below one wei.
func ToWei(ether decimal.Decimal) *big.Int {
	return ether.Mul(weiPerEther).Truncate(0).BigInt()
}

func FromWei(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -18)
}
