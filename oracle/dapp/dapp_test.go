package dapp

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/GPTx-global/flightsurety/oracle/log"
	"github.com/GPTx-global/flightsurety/oracle/types"
)

var (
	owner     = common.HexToAddress("0x0000000000000000000000000000000000000100")
	airline   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	passenger = common.HexToAddress("0x0000000000000000000000000000000000000200")
)

type purchase struct {
	passenger common.Address
	airline   common.Address
	flight    string
	timestamp *big.Int
	value     *big.Int
}

type statusRequest struct {
	from      common.Address
	airline   common.Address
	flight    string
	timestamp *big.Int
}

type fakeApp struct {
	purchases []purchase
	requests  []statusRequest
	withdrawn []common.Address
	credit    *big.Int
}

func (f *fakeApp) IsOperational(context.Context, common.Address) (bool, error) {
	return true, nil
}

func (f *fakeApp) SubmitPurchase(_ context.Context, p, a common.Address, flight string, ts, value *big.Int) (*ethtypes.Receipt, error) {
	f.purchases = append(f.purchases, purchase{p, a, flight, ts, value})
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}, nil
}

func (f *fakeApp) FetchFlightStatus(_ context.Context, from, a common.Address, flight string, ts *big.Int) (*ethtypes.Receipt, error) {
	f.requests = append(f.requests, statusRequest{from, a, flight, ts})
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}, nil
}

func (f *fakeApp) GetFlightStatus(context.Context, common.Address, string, *big.Int) (uint8, error) {
	return types.StatusCodeLateAirline, nil
}

func (f *fakeApp) GetAccountCredit(context.Context, common.Address) (*big.Int, error) {
	return f.credit, nil
}

func (f *fakeApp) SubmitWithdrawal(_ context.Context, p common.Address) (*ethtypes.Receipt, error) {
	f.withdrawn = append(f.withdrawn, p)
	return &ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}, nil
}

func (f *fakeApp) ListRegisteredAirlines(context.Context, common.Address) ([]common.Address, error) {
	return []common.Address{airline}, nil
}

type DappTestSuite struct {
	suite.Suite
	app    *fakeApp
	client *Client
	flight types.SyntheticFlight
}

func TestDappSuite(t *testing.T) {
	suite.Run(t, new(DappTestSuite))
}

func (suite *DappTestSuite) SetupTest() {
	log.InitLogger()

	suite.app = &fakeApp{credit: big.NewInt(0)}
	client, err := New(suite.app, owner, "1")
	suite.Require().NoError(err)
	suite.client = client

	suite.flight = types.SyntheticFlight{FlightNumber: "AA9200", Airline: airline, Timestamp: 1_700_000_123_456}
}

func (suite *DappTestSuite) TestNew_InvalidCap() {
	for _, limit := range []string{"", "abc", "0", "-1"} {
		_, err := New(suite.app, owner, limit)
		suite.True(errorsmod.IsOf(err, types.ErrInvalidConfig), limit)
	}
}

func (suite *DappTestSuite) TestBuyInsurance() {
	_, err := suite.client.BuyInsurance(context.Background(), passenger, suite.flight, "0.5")
	suite.Require().NoError(err)

	suite.Require().Len(suite.app.purchases, 1)
	p := suite.app.purchases[0]
	suite.Equal(passenger, p.passenger)
	suite.Equal(airline, p.airline)
	suite.Equal("AA9200", p.flight)
	suite.Equal(int64(1_700_000_123), p.timestamp.Int64())
	suite.Equal("500000000000000000", p.value.String())
}

func (suite *DappTestSuite) TestBuyInsurance_AtCap() {
	_, err := suite.client.BuyInsurance(context.Background(), passenger, suite.flight, "1")
	suite.Require().NoError(err)
	suite.Equal("1000000000000000000", suite.app.purchases[0].value.String())
}

func (suite *DappTestSuite) TestBuyInsurance_Invalid() {
	for _, amount := range []string{"", "ten", "0", "-0.1", "1.0000001", "0.0000000000000000001"} {
		_, err := suite.client.BuyInsurance(context.Background(), passenger, suite.flight, amount)
		suite.True(errorsmod.IsOf(err, types.ErrInvalidInsurance), amount)
	}
	suite.Empty(suite.app.purchases)
}

func (suite *DappTestSuite) TestFetchFlightStatus_UsesFlightAirline() {
	_, err := suite.client.FetchFlightStatus(context.Background(), suite.flight)
	suite.Require().NoError(err)

	suite.Require().Len(suite.app.requests, 1)
	r := suite.app.requests[0]
	suite.Equal(owner, r.from)
	suite.Equal(airline, r.airline)
	suite.Equal("AA9200", r.flight)
	suite.Equal(int64(1_700_000_123), r.timestamp.Int64())
}

func (suite *DappTestSuite) TestCreditAndWithdraw() {
	suite.app.credit, _ = new(big.Int).SetString("1500000000000000000", 10)

	credit, err := suite.client.Credit(context.Background(), passenger)
	suite.Require().NoError(err)
	suite.True(credit.Equal(decimal.RequireFromString("1.5")), credit.String())

	_, err = suite.client.Withdraw(context.Background(), passenger)
	suite.Require().NoError(err)
	suite.Equal([]common.Address{passenger}, suite.app.withdrawn)
}

func (suite *DappTestSuite) TestFlightStatus() {
	code, err := suite.client.FlightStatus(context.Background(), suite.flight)
	suite.Require().NoError(err)
	suite.Equal(types.StatusCodeLateAirline, code)
}

func (suite *DappTestSuite) TestFetchCatalog() {
	catalog := []types.SyntheticFlight{suite.flight, {FlightNumber: "UA0900", Airline: airline, Timestamp: 1}}
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_ = json.NewEncoder(w).Encode(catalog)
	}))
	defer srv.Close()

	got, err := suite.client.FetchCatalog(context.Background(), srv.URL+"/")
	suite.Require().NoError(err)
	suite.Equal(catalog, got)

	got, err = suite.client.CurrentCatalog(context.Background(), srv.URL)
	suite.Require().NoError(err)
	suite.Equal(catalog, got)
	suite.Equal([]string{"/api/fetchFlights", "/api/flights"}, paths)

	f, ok := FindFlight(got, "ua0900")
	suite.True(ok)
	suite.Equal("UA0900", f.FlightNumber)
	_, ok = FindFlight(got, "XX0000")
	suite.False(ok)
}

func (suite *DappTestSuite) TestFetchCatalog_ServerError() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := suite.client.FetchCatalog(context.Background(), srv.URL)
	suite.Error(err)
}

func (suite *DappTestSuite) TestWeiConversion() {
	suite.Equal("1000000000000000000", ToWei(decimal.NewFromInt(1)).String())
	suite.Equal("1", ToWei(decimal.RequireFromString("0.000000000000000001")).String())
	suite.Equal("0.25", FromWei(big.NewInt(250000000000000000)).String())
}
