package chain

import (
	"bytes"
	"embed"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/tidwall/gjson"
)

const (
	AppABIName  = "FlightSuretyApp.json"
	DataABIName = "FlightSuretyData.json"
)

//go:embed abi/*.json
var abiFS embed.FS

// LoadABI parses the ABI at path, which may be a Truffle build artifact or a
// bare ABI array. An empty path selects the embedded ABI called name.
func LoadABI(path, name string) (abi.ABI, error) {
	var (
		raw []byte
		err error
	)

	if path == "" {
		raw, err = abiFS.ReadFile("abi/" + name)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to read abi %s: %w", name, err)
	}

	return ParseABI(raw)
}

// ParseABI accepts either a Truffle artifact (the "abi" field is used) or a
// bare ABI array.
func ParseABI(raw []byte) (abi.ABI, error) {
	if field := gjson.GetBytes(raw, "abi"); field.Exists() && field.IsArray() {
		raw = []byte(field.Raw)
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse abi: %w", err)
	}

	return parsed, nil
}
