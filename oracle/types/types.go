package types

import (
	"encoding/json"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// OracleIdentity is a simulated oracle account together with the consensus
// indexes the App contract assigned to it at registration.
type OracleIdentity struct {
	Address common.Address `json:"address"`
	Indexes []uint8        `json:"indexes"`
}

// Has reports whether index is one of the identity's consensus indexes.
func (o OracleIdentity) Has(index uint8) bool {
	return slices.Contains(o.Indexes, index)
}

// MarshalJSON writes indexes as numbers rather than a byte string.
func (o OracleIdentity) MarshalJSON() ([]byte, error) {
	indexes := make([]int, len(o.Indexes))
	for i, idx := range o.Indexes {
		indexes[i] = int(idx)
	}

	return json.Marshal(struct {
		Address common.Address `json:"address"`
		Indexes []int          `json:"indexes"`
	}{o.Address, indexes})
}

func (o OracleIdentity) String() string {
	return fmt.Sprintf("%s%v", o.Address.Hex(), o.Indexes)
}

// StatusRequestEvent is a decoded OracleRequest log.
type StatusRequestEvent struct {
	Index     uint8
	Airline   common.Address
	Flight    string
	Timestamp *big.Int // unix seconds

	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint
}

// Key identifies the log that carried the event.
func (e StatusRequestEvent) Key() string {
	return fmt.Sprintf("%s:%d", e.TxHash.Hex(), e.LogIndex)
}

// SyntheticFlight is one catalog entry. Timestamp is unix milliseconds.
type SyntheticFlight struct {
	FlightNumber string         `json:"flightNumber"`
	Airline      common.Address `json:"airline"`
	Timestamp    int64          `json:"timestamp"`
}

// TimestampSeconds is the departure time as the contracts expect it.
func (f SyntheticFlight) TimestampSeconds() *big.Int {
	return big.NewInt(f.Timestamp / 1000)
}

// Key identifies the on-chain flight registration for this entry.
func (f SyntheticFlight) Key() string {
	return fmt.Sprintf("%s@%d", f.FlightNumber, f.Timestamp/1000)
}

// OracleResponse is a single submitOracleResponse call planned for an event.
type OracleResponse struct {
	Oracle     common.Address `json:"oracle"`
	Index      uint8          `json:"index"`
	Airline    common.Address `json:"airline"`
	Flight     string         `json:"flight"`
	Timestamp  *big.Int       `json:"timestamp"`
	StatusCode uint8          `json:"statusCode"`
}

// RegistrationState tracks the background on-chain registration of a flight.
type RegistrationState string

const (
	RegistrationPending    RegistrationState = "pending"
	RegistrationRegistered RegistrationState = "registered"
	RegistrationFailed     RegistrationState = "failed"
)

// Registration is the confirmation status of one catalog entry.
type Registration struct {
	Flight SyntheticFlight   `json:"flight"`
	State  RegistrationState `json:"state"`
	Error  string            `json:"error,omitempty"`
}

// Flight status codes understood by the App contract.
const (
	StatusCodeUnknown       uint8 = 0
	StatusCodeOnTime        uint8 = 10
	StatusCodeLateAirline   uint8 = 20
	StatusCodeLateWeather   uint8 = 30
	StatusCodeLateTechnical uint8 = 40
	StatusCodeLateOther     uint8 = 50
)

var statusNames = map[uint8]string{
	StatusCodeUnknown:       "unknown",
	StatusCodeOnTime:        "on-time",
	StatusCodeLateAirline:   "late-airline",
	StatusCodeLateWeather:   "late-weather",
	StatusCodeLateTechnical: "late-technical",
	StatusCodeLateOther:     "late-other",
}

// StatusName returns a readable name for a status code.
func StatusName(code uint8) string {
	if name, ok := statusNames[code]; ok {
		return name
	}
	return fmt.Sprintf("code-%d", code)
}
