package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/GPTx-global/flightsurety/oracle/log"
)

type RootCmdTestSuite struct {
	suite.Suite
	home string
}

func TestRootCmdSuite(t *testing.T) {
	suite.Run(t, new(RootCmdTestSuite))
}

func (suite *RootCmdTestSuite) SetupTest() {
	log.InitLogger()
	suite.home = suite.T().TempDir()
}

func (suite *RootCmdTestSuite) run(args ...string) (string, error) {
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--home", suite.home}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func (suite *RootCmdTestSuite) TestConfigShow_CreatesDefault() {
	out, err := suite.run("config", "show")
	suite.Require().NoError(err)

	suite.FileExists(filepath.Join(suite.home, "config.toml"))
	suite.Contains(out, "endpoint = 'ws://127.0.0.1:8545'")
	suite.Contains(out, "AA9200")
}

func (suite *RootCmdTestSuite) TestConfigShow_FlagOverrides() {
	out, err := suite.run("config", "show", "--endpoint", "ws://chain:8546", "--listen", ":4000")
	suite.Require().NoError(err)

	suite.Contains(out, "endpoint = 'ws://chain:8546'")
	suite.Contains(out, "listen = ':4000'")
}

func (suite *RootCmdTestSuite) TestConfigShow_EnvOverrides() {
	suite.T().Setenv("FLIGHTSURETY_APP_ADDRESS", "0x00000000000000000000000000000000000000a1")

	out, err := suite.run("config", "show")
	suite.Require().NoError(err)
	suite.Contains(out, "app_address = '0x00000000000000000000000000000000000000a1'")
}

func (suite *RootCmdTestSuite) TestInvalidLogLevel() {
	_, err := suite.run("config", "show", "--log-level", "loud")
	suite.Error(err)
}

func (suite *RootCmdTestSuite) TestInvalidConfigFile() {
	suite.Require().NoError(os.WriteFile(filepath.Join(suite.home, "config.toml"), []byte("[oracle]\nworkers = 0\n"), 0644))

	_, err := suite.run("config", "show")
	suite.Error(err)
}
