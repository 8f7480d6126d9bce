package daemon

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	"github.com/GPTx-global/flightsurety/oracle/catalog"
	"github.com/GPTx-global/flightsurety/oracle/log"
	"github.com/GPTx-global/flightsurety/oracle/types"
	"github.com/GPTx-global/flightsurety/oracle/worker"
)

type funding struct {
	from  common.Address
	value *big.Int
}

type fakeAirlineApp struct {
	fee         *big.Int
	feeErr      error
	registerErr map[common.Address]error
	fundings    []funding
	registered  map[common.Address]bool
}

func (f *fakeAirlineApp) AirlineRegistrationFee(context.Context) (*big.Int, error) {
	return f.fee, f.feeErr
}

func (f *fakeAirlineApp) SubmitFunding(_ context.Context, from common.Address, value *big.Int) error {
	f.fundings = append(f.fundings, funding{from, value})
	return nil
}

func (f *fakeAirlineApp) RegisterAirline(_ context.Context, _, airline common.Address) error {
	if err := f.registerErr[airline]; err != nil {
		return err
	}
	f.registered[airline] = true
	return nil
}

func (f *fakeAirlineApp) IsAirlineRegistered(_ context.Context, airline common.Address) (bool, error) {
	return f.registered[airline], nil
}

func (f *fakeAirlineApp) RegisterFlight(context.Context, common.Address, string, *big.Int) error {
	return nil
}

type inlineDispatcher struct{}

func (inlineDispatcher) SubmitJob(job worker.Job) bool {
	job.Run(context.Background())
	return true
}

type fakeData struct {
	err    error
	caller common.Address
}

func (f *fakeData) AuthorizeCaller(_ context.Context, _, caller common.Address) error {
	f.caller = caller
	return f.err
}

type AccountsTestSuite struct {
	suite.Suite
	all []common.Address
}

func TestAccountsSuite(t *testing.T) {
	suite.Run(t, new(AccountsTestSuite))
}

func (suite *AccountsTestSuite) SetupTest() {
	log.InitLogger()

	suite.all = nil
	for i := 0; i < 50; i++ {
		suite.all = append(suite.all, common.BigToAddress(big.NewInt(int64(i+1))))
	}
}

func (suite *AccountsTestSuite) TestResolveAccounts_Default() {
	accounts, err := ResolveAccounts(suite.all, 0, 1, 3, 10, 39)
	suite.Require().NoError(err)

	suite.Equal(suite.all[0], accounts.Owner)
	suite.Equal(suite.all[1:4], accounts.Airlines)
	suite.Equal(suite.all[10:49], accounts.Oracles)
}

func (suite *AccountsTestSuite) TestResolveAccounts_ClampsOracles() {
	accounts, err := ResolveAccounts(suite.all[:20], 0, 1, 3, 10, 39)
	suite.Require().NoError(err)
	suite.Len(accounts.Oracles, 10)
}

func (suite *AccountsTestSuite) TestResolveAccounts_NotEnough() {
	_, err := ResolveAccounts(suite.all[:3], 0, 1, 3, 10, 39)
	suite.True(errorsmod.IsOf(err, types.ErrNotEnoughAccounts))

	_, err = ResolveAccounts(suite.all[:10], 0, 1, 3, 10, 39)
	suite.True(errorsmod.IsOf(err, types.ErrNotEnoughAccounts))

	_, err = ResolveAccounts(nil, 0, 1, 3, 10, 39)
	suite.True(errorsmod.IsOf(err, types.ErrNotEnoughAccounts))
}

func (suite *AccountsTestSuite) TestBootstrapAirlines() {
	accounts, err := ResolveAccounts(suite.all, 0, 1, 3, 10, 39)
	suite.Require().NoError(err)

	app := &fakeAirlineApp{
		fee:         big.NewInt(10),
		registerErr: map[common.Address]error{accounts.Airlines[1]: errors.New("execution reverted")},
		registered:  make(map[common.Address]bool),
	}
	data := &fakeData{err: errors.New("already authorized")}
	appAddress := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	registered := BootstrapAirlines(context.Background(), data, app, appAddress, accounts)

	suite.Equal(appAddress, data.caller)
	suite.Equal([]common.Address{accounts.Airlines[0], accounts.Airlines[2]}, registered)
	suite.Equal([]funding{
		{accounts.Owner, big.NewInt(10)},
		{accounts.Airlines[0], big.NewInt(10)},
		{accounts.Airlines[2], big.NewInt(10)},
	}, app.fundings)
}

func (suite *AccountsTestSuite) TestBootstrapAirlines_FeeUnavailable() {
	accounts, err := ResolveAccounts(suite.all, 0, 1, 3, 10, 39)
	suite.Require().NoError(err)

	app := &fakeAirlineApp{feeErr: errors.New("connection refused"), registered: make(map[common.Address]bool)}
	suite.Nil(BootstrapAirlines(context.Background(), &fakeData{}, app, common.Address{}, accounts))
	suite.Empty(app.fundings)
}

func (suite *AccountsTestSuite) TestCatalogAirlines_SkipsUnregistered() {
	accounts, err := ResolveAccounts(suite.all, 0, 1, 3, 10, 39)
	suite.Require().NoError(err)

	rejected := accounts.Airlines[1]
	app := &fakeAirlineApp{
		fee:         big.NewInt(10),
		registerErr: map[common.Address]error{rejected: errors.New("execution reverted")},
		registered:  make(map[common.Address]bool),
	}
	registered := BootstrapAirlines(context.Background(), &fakeData{}, app, common.Address{}, accounts)

	airlines := CatalogAirlines(registered, accounts)
	suite.Equal([]common.Address{accounts.Airlines[0], accounts.Airlines[2]}, airlines)

	gen := catalog.New(app, inlineDispatcher{}, airlines, []string{"AA9200", "AA8300", "UA0900"}, 10*time.Second, 800*time.Second)
	seen := make(map[common.Address]bool)
	for i := 0; i < 200; i++ {
		flights, err := gen.Generate()
		suite.Require().NoError(err)
		for _, f := range flights {
			suite.Require().NotEqual(rejected, f.Airline)
			seen[f.Airline] = true
		}
	}
	suite.True(seen[accounts.Airlines[0]])
	suite.True(seen[accounts.Airlines[2]])
}

func (suite *AccountsTestSuite) TestCatalogAirlines_FallsBackToConfigured() {
	accounts, err := ResolveAccounts(suite.all, 0, 1, 3, 10, 39)
	suite.Require().NoError(err)

	suite.Equal(accounts.Airlines, CatalogAirlines(nil, accounts))
}
