package chain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ArtifactTestSuite struct {
	suite.Suite
}

func TestArtifactSuite(t *testing.T) {
	suite.Run(t, new(ArtifactTestSuite))
}

func (suite *ArtifactTestSuite) TestEmbeddedABIs() {
	app, err := LoadABI("", AppABIName)
	suite.Require().NoError(err)
	for _, m := range []string{
		MethodIsOperational, MethodRegistrationFee, MethodAirlineRegistrationFee,
		MethodRegisterOracle, MethodGetMyIndexes, MethodRegisterFlight,
		MethodGetFlightStatus, MethodSubmitOracleResponse, MethodRegisterAirline,
		MethodIsAirlineRegistered, MethodListRegisteredAirlines, MethodSubmitFunding,
		MethodSubmitPurchase, MethodFetchFlightStatus, MethodSubmitWithdrawal,
		MethodGetAccountCredit,
	} {
		suite.Contains(app.Methods, m)
	}
	suite.Contains(app.Events, EventOracleRequest)
	suite.Contains(app.Events, EventOracleReport)
	suite.Contains(app.Events, EventFlightStatusInfo)

	data, err := LoadABI("", DataABIName)
	suite.Require().NoError(err)
	suite.Contains(data.Methods, MethodAuthorizeCaller)
}

func (suite *ArtifactTestSuite) TestTruffleArtifact() {
	artifact := `{
		"contractName": "FlightSuretyData",
		"abi": [
			{"type": "function", "name": "authorizeCaller", "stateMutability": "nonpayable",
			 "inputs": [{"name": "contractAddress", "type": "address"}], "outputs": []}
		],
		"bytecode": "0x00"
	}`
	path := filepath.Join(suite.T().TempDir(), "FlightSuretyData.json")
	suite.Require().NoError(os.WriteFile(path, []byte(artifact), 0644))

	parsed, err := LoadABI(path, DataABIName)
	suite.Require().NoError(err)
	suite.Len(parsed.Methods, 1)
	suite.Contains(parsed.Methods, MethodAuthorizeCaller)
}

func (suite *ArtifactTestSuite) TestBareABI() {
	parsed, err := ParseABI([]byte(`[{"type": "function", "name": "isOperational", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "bool"}]}]`))
	suite.Require().NoError(err)
	suite.Contains(parsed.Methods, MethodIsOperational)
}

func (suite *ArtifactTestSuite) TestErrors() {
	_, err := LoadABI(filepath.Join(suite.T().TempDir(), "missing.json"), AppABIName)
	suite.Error(err)

	_, err = ParseABI([]byte(`{"abi": "nope"}`))
	suite.Error(err)
}
