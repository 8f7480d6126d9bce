package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/pelletier/go-toml/v2"

	"github.com/GPTx-global/flightsurety/oracle/log"
	"github.com/GPTx-global/flightsurety/oracle/types"
)

// DefaultFlights is the fixed flight-number list served by the catalog.
var DefaultFlights = []string{"AA9200", "AA8300", "AA7100", "UA0900", "UA1200", "UA2300"}

var (
	globalConfig = defaultConfig()
	home         = DefaultHome()
	mu           sync.RWMutex
)

type configData struct {
	Chain     chainConfig     `toml:"chain"`
	Accounts  accountsConfig  `toml:"accounts"`
	Catalog   catalogConfig   `toml:"catalog"`
	Oracle    oracleConfig    `toml:"oracle"`
	Server    serverConfig    `toml:"server"`
	Insurance insuranceConfig `toml:"insurance"`
	Notify    notifyConfig    `toml:"notify"`
	Log       logConfig       `toml:"log"`
}

type chainConfig struct {
	Endpoint     string `toml:"endpoint"`
	AppAddress   string `toml:"app_address"`
	DataAddress  string `toml:"data_address"`
	AppArtifact  string `toml:"app_artifact"`
	DataArtifact string `toml:"data_artifact"`
}

type accountsConfig struct {
	OwnerIndex   int `toml:"owner_index"`
	AirlineStart int `toml:"airline_start"`
	AirlineCount int `toml:"airline_count"`
	OracleStart  int `toml:"oracle_start"`
	OracleCount  int `toml:"oracle_count"`
}

type catalogConfig struct {
	Flights     []string `toml:"flights"`
	MinOffsetMs int64    `toml:"min_offset_ms"`
	MaxOffsetMs int64    `toml:"max_offset_ms"`
}

type oracleConfig struct {
	FromBlock uint64 `toml:"from_block"`
	Workers   int    `toml:"workers"`
}

type serverConfig struct {
	Listen string `toml:"listen"`
}

type insuranceConfig struct {
	MaxEther string `toml:"max_ether"`
}

type notifyConfig struct {
	NatsURL string `toml:"nats_url"`
	Subject string `toml:"subject"`
}

type logConfig struct {
	Level string `toml:"level"`
}

func defaultConfig() configData {
	return configData{
		Chain: chainConfig{
			Endpoint: "ws://127.0.0.1:8545",
		},
		Accounts: accountsConfig{
			OwnerIndex:   0,
			AirlineStart: 1,
			AirlineCount: 3,
			OracleStart:  10,
			OracleCount:  39,
		},
		Catalog: catalogConfig{
			Flights:     append([]string(nil), DefaultFlights...),
			MinOffsetMs: 10000,
			MaxOffsetMs: 800000,
		},
		Oracle: oracleConfig{
			FromBlock: 0,
			Workers:   8,
		},
		Server: serverConfig{
			Listen: ":3000",
		},
		Insurance: insuranceConfig{
			MaxEther: "1",
		},
		Notify: notifyConfig{
			Subject: "flightsurety.oracle.responses",
		},
		Log: logConfig{
			Level: "info",
		},
	}
}

// DefaultHome is ~/.flightsurety.
func DefaultHome() string {
	osHome, err := os.UserHomeDir()
	if err != nil {
		return ".flightsurety"
	}

	return filepath.Join(osHome, ".flightsurety")
}

// Load reads <dir>/config.toml, writing a default file first when none exists.
func Load(dir string) error {
	path := filepath.Join(dir, "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefaultConfig(path); err != nil {
			return fmt.Errorf("failed to create default config: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	loaded := defaultConfig()
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse TOML: %w", err)
	}

	if err := validateConfig(loaded); err != nil {
		return err
	}

	mu.Lock()
	globalConfig = loaded
	home = dir
	mu.Unlock()

	log.Infof("Loaded config from %s", path)
	return nil
}

func createDefaultConfig(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := toml.Marshal(defaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal TOML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func validateConfig(c configData) error {
	if c.Chain.Endpoint == "" {
		return errorsmod.Wrap(types.ErrInvalidConfig, "chain endpoint is required")
	}

	if c.Accounts.OwnerIndex < 0 || c.Accounts.AirlineStart < 0 || c.Accounts.OracleStart < 0 {
		return errorsmod.Wrap(types.ErrInvalidConfig, "account indexes must not be negative")
	}

	if c.Accounts.AirlineCount <= 0 {
		return errorsmod.Wrap(types.ErrInvalidConfig, "airline count must be positive")
	}

	if c.Accounts.OracleCount <= 0 {
		return errorsmod.Wrap(types.ErrInvalidConfig, "oracle count must be positive")
	}

	if len(c.Catalog.Flights) == 0 {
		return errorsmod.Wrap(types.ErrInvalidConfig, "catalog flights are required")
	}

	if c.Catalog.MinOffsetMs < 0 || c.Catalog.MaxOffsetMs <= c.Catalog.MinOffsetMs {
		return errorsmod.Wrapf(types.ErrInvalidConfig, "invalid catalog offset range [%d, %d)", c.Catalog.MinOffsetMs, c.Catalog.MaxOffsetMs)
	}

	if c.Oracle.Workers <= 0 {
		return errorsmod.Wrap(types.ErrInvalidConfig, "oracle workers must be positive")
	}

	if c.Server.Listen == "" {
		return errorsmod.Wrap(types.ErrInvalidConfig, "server listen address is required")
	}

	if c.Insurance.MaxEther == "" {
		return errorsmod.Wrap(types.ErrInvalidConfig, "insurance max_ether is required")
	}

	return nil
}

func Print() {
	log.Infof("%-15s: %s", "Home", Home())
	log.Infof("%-15s: %s", "Chain Endpoint", ChainEndpoint())
	log.Infof("%-15s: %s", "App Address", AppAddress())
	log.Infof("%-15s: %s", "Data Address", DataAddress())
	log.Infof("%-15s: %d", "Owner Index", OwnerIndex())
	log.Infof("%-15s: %d+%d", "Airlines", AirlineStart(), AirlineCount())
	log.Infof("%-15s: %d+%d", "Oracles", OracleStart(), OracleCount())
	log.Infof("%-15s: %v", "Flights", Flights())
	log.Infof("%-15s: %s", "Listen", ServerListen())
}

// Dump renders the effective configuration as TOML.
func Dump() ([]byte, error) {
	return toml.Marshal(read())
}

func read() configData {
	mu.RLock()
	defer mu.RUnlock()

	return globalConfig
}

func Home() string {
	mu.RLock()
	defer mu.RUnlock()

	return home
}

func ChainEndpoint() string {
	return read().Chain.Endpoint
}

func AppAddress() string {
	return read().Chain.AppAddress
}

func DataAddress() string {
	return read().Chain.DataAddress
}

func AppArtifact() string {
	return read().Chain.AppArtifact
}

func DataArtifact() string {
	return read().Chain.DataArtifact
}

func OwnerIndex() int {
	return read().Accounts.OwnerIndex
}

func AirlineStart() int {
	return read().Accounts.AirlineStart
}

func AirlineCount() int {
	return read().Accounts.AirlineCount
}

func OracleStart() int {
	return read().Accounts.OracleStart
}

func OracleCount() int {
	return read().Accounts.OracleCount
}

func Flights() []string {
	return append([]string(nil), read().Catalog.Flights...)
}

func MinOffset() time.Duration {
	return time.Duration(read().Catalog.MinOffsetMs) * time.Millisecond
}

func MaxOffset() time.Duration {
	return time.Duration(read().Catalog.MaxOffsetMs) * time.Millisecond
}

func FromBlock() uint64 {
	return read().Oracle.FromBlock
}

func Workers() int {
	return read().Oracle.Workers
}

func ServerListen() string {
	return read().Server.Listen
}

func MaxInsuranceEther() string {
	return read().Insurance.MaxEther
}

func NatsURL() string {
	return read().Notify.NatsURL
}

func NatsSubject() string {
	return read().Notify.Subject
}

func LogLevel() string {
	return read().Log.Level
}

func ChannelSize() int {
	return 1 << 10
}

// Override replaces individual values after Load; empty strings are ignored.
func Override(endpoint, appAddress, dataAddress, listen string) {
	mu.Lock()
	defer mu.Unlock()

	if endpoint != "" {
		globalConfig.Chain.Endpoint = endpoint
	}
	if appAddress != "" {
		globalConfig.Chain.AppAddress = appAddress
	}
	if dataAddress != "" {
		globalConfig.Chain.DataAddress = dataAddress
	}
	if listen != "" {
		globalConfig.Server.Listen = listen
	}
}

func SetForTesting(endpoint, appAddress, dataAddress string, flights []string, airlineCount, oracleCount int) {
	mu.Lock()
	defer mu.Unlock()

	globalConfig = defaultConfig()
	globalConfig.Chain.Endpoint = endpoint
	globalConfig.Chain.AppAddress = appAddress
	globalConfig.Chain.DataAddress = dataAddress
	if flights != nil {
		globalConfig.Catalog.Flights = flights
	}
	globalConfig.Accounts.AirlineCount = airlineCount
	globalConfig.Accounts.OracleCount = oracleCount
}
