package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Platform API endpoints
const (
	APIBaseURL          = "https://api.worldquantbrain.com"
	AuthEndpoint        = "/authentication"
	DataFieldsEndpoint  = "/data-fields"
	OperatorsEndpoint   = "/operators"
	SimulationsEndpoint = "/simulations"
	ParseEndpoint       = "/simulations/parse"
	AlphasEndpoint      = "/alphas"
)

// SimulationSettings configure how the platform parses and simulates an
// expression. Keys follow the platform's wire names.
type SimulationSettings map[string]interface{}

// DefaultSimulationSettings is the scope every expression is checked
// against: US top-3000 equities at delay 1.
func DefaultSimulationSettings() SimulationSettings {
	return SimulationSettings{
		"instrumentType": "EQUITY",
		"region":         "USA",
		"universe":       "TOP3000",
		"delay":          1,
		"decay":          0,
		"neutralization": "INDUSTRY",
		"truncation":     0.08,
		"pasteurization": "ON",
		"unitHandling":   "VERIFY",
		"nanHandling":    "OFF",
		"language":       "FASTEXPR",
		"visualization":  false,
	}
}

// DefaultDatasets are the datasets scanned for data fields when a run
// does not name its own.
var DefaultDatasets = []string{
	"fundamental6",
	"fundamental2",
	"analyst4",
	"model16",
	"model51",
	"news12",
}

// Catalog query defaults
const (
	DataFieldsPageLimit = 20
	RateLimitSleepSecs  = 60 // fallback wait when a 429 carries no Retry-After
	MaxRetries          = 3
)

// Credentials is the username/password pair for the platform API.
type Credentials struct {
	Username string
	Password string
}

// LoadCredentials reads a credentials file holding a two-element JSON
// array: ["username", "password"].
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if len(pair) != 2 {
		return Credentials{}, fmt.Errorf("credentials file must hold exactly [username, password], got %d entries", len(pair))
	}

	return Credentials{Username: pair[0], Password: pair[1]}, nil
}
