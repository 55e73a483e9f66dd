package dex

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed abis/*.json
var builtinABIs embed.FS

// Built-in interface names accepted by LoadABI.
const (
	QuoterInterface          = "quoter"
	RouterInterface          = "router"
	PositionManagerInterface = "position_manager"
)

// LoadABI parses the interface for kind. An empty source or "builtin"
// selects the embedded description; anything else is a JSON ABI file path.
func LoadABI(kind, source string) (*abi.ABI, error) {
	var raw []byte
	var err error
	switch source = strings.TrimSpace(source); source {
	case "", "builtin":
		raw, err = builtinABIs.ReadFile("abis/" + kind + ".json")
	default:
		raw, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s interface: %w", kind, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%s interface is empty", kind)
	}
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s interface: %w", kind, err)
	}
	return &parsed, nil
}
