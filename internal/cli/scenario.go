package cli

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/xraph/token"
	"github.com/xraph/token/types"
)

// Step operations.
const (
	OpTransfer          = token.OpTransfer
	OpSetPrices         = token.OpSetPrices
	OpFreeze            = token.OpFreeze
	OpMint              = token.OpMint
	OpTransferOwnership = token.OpTransferOwnership
)

// ExpectOK is the expected outcome of a successful step.
const ExpectOK = "ok"

// Environment variables overriding the scenario genesis.
const (
	EnvTokenName   = "TOKEN_NAME"
	EnvTokenSymbol = "TOKEN_SYMBOL"
)

var validOps = []string{OpTransfer, OpSetPrices, OpFreeze, OpMint, OpTransferOwnership}

var validOutcomes = []string{
	ExpectOK,
	"Unauthorized",
	"AccountFrozen",
	"InsufficientBalance",
	"Overflow",
}

// Quantity is a whole-token decimal amount as written in YAML. Both
// `amount: 12.5` and `amount: "12.5"` are accepted.
type Quantity string

// UnmarshalYAML implements yaml.Unmarshaler.
func (q *Quantity) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", node.Line)
	}
	*q = Quantity(node.Value)
	return nil
}

// Amount parses q with the given display precision. An empty quantity is zero.
func (q Quantity) Amount(decimals uint8) (types.Amount, error) {
	if q == "" {
		return 0, nil
	}
	return types.ParseAmount(string(q), decimals)
}

// Scenario is a replayable sequence of ledger operations.
type Scenario struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Genesis     ScenarioGenesis `yaml:"genesis"`
	Steps       []Step          `yaml:"steps"`
}

// ScenarioGenesis is the initial ledger state of a scenario.
type ScenarioGenesis struct {
	Name     string   `yaml:"name"`
	Symbol   string   `yaml:"symbol"`
	Decimals uint8    `yaml:"decimals,omitempty"`
	Supply   Quantity `yaml:"supply"`
	Owner    string   `yaml:"owner"`
}

// Step is one ledger call. Which fields apply depends on Op.
type Step struct {
	Op       string   `yaml:"op"`
	Caller   string   `yaml:"caller"`
	To       string   `yaml:"to,omitempty"`
	Target   string   `yaml:"target,omitempty"`
	NewOwner string   `yaml:"new_owner,omitempty"`
	Amount   Quantity `yaml:"amount,omitempty"`
	Sell     Quantity `yaml:"sell,omitempty"`
	Buy      Quantity `yaml:"buy,omitempty"`
	Frozen   bool     `yaml:"frozen,omitempty"`
	Expect   string   `yaml:"expect,omitempty"`
}

// Expected returns the expected outcome, defaulting to ExpectOK.
func (s Step) Expected() string {
	if s.Expect == "" {
		return ExpectOK
	}
	return s.Expect
}

// ValidationError describes one problem in a scenario file.
type ValidationError struct {
	Step    int    `json:"step,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) String() string {
	if e.Step > 0 {
		return fmt.Sprintf("step %d: %s: %s", e.Step, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &scenario, nil
}

// ApplyEnvOverrides replaces the genesis name and symbol with TOKEN_NAME and
// TOKEN_SYMBOL when those are set.
func (s *Scenario) ApplyEnvOverrides() {
	if v := os.Getenv(EnvTokenName); v != "" {
		s.Genesis.Name = v
	}
	if v := os.Getenv(EnvTokenSymbol); v != "" {
		s.Genesis.Symbol = v
	}
}

// Decimals returns the effective display precision.
func (s *Scenario) Decimals() uint8 {
	if s.Genesis.Decimals == 0 {
		return types.DefaultDecimals
	}
	return s.Genesis.Decimals
}

// Validate checks the scenario and returns every problem found.
func (s *Scenario) Validate() []ValidationError {
	var errs []ValidationError
	add := func(step int, field, msg string) {
		errs = append(errs, ValidationError{Step: step, Field: field, Message: msg})
	}
	decimals := s.Decimals()

	if s.Name == "" {
		add(0, "name", "is required")
	}
	if s.Genesis.Owner == "" {
		add(0, "genesis.owner", "is required")
	}
	if _, err := s.Genesis.Supply.Amount(decimals); err != nil {
		add(0, "genesis.supply", err.Error())
	}
	if len(s.Steps) == 0 {
		add(0, "steps", "must be non-empty")
	}

	for i, step := range s.Steps {
		n := i + 1
		if !slices.Contains(validOps, step.Op) {
			add(n, "op", fmt.Sprintf("unknown operation %q", step.Op))
			continue
		}
		if step.Caller == "" {
			add(n, "caller", "is required")
		}
		if !slices.Contains(validOutcomes, step.Expected()) {
			add(n, "expect", fmt.Sprintf("unknown outcome %q", step.Expect))
		}

		switch step.Op {
		case OpTransfer:
			if step.To == "" {
				add(n, "to", "is required")
			}
			checkQuantity(add, n, "amount", step.Amount, decimals)
		case OpMint:
			if step.Target == "" {
				add(n, "target", "is required")
			}
			checkQuantity(add, n, "amount", step.Amount, decimals)
		case OpFreeze:
			if step.Target == "" {
				add(n, "target", "is required")
			}
		case OpSetPrices:
			checkQuantity(add, n, "sell", step.Sell, decimals)
			checkQuantity(add, n, "buy", step.Buy, decimals)
		case OpTransferOwnership:
			if step.NewOwner == "" {
				add(n, "new_owner", "is required")
			}
		}
	}

	return errs
}

func checkQuantity(add func(int, string, string), step int, field string, q Quantity, decimals uint8) {
	if q == "" {
		add(step, field, "is required")
		return
	}
	if _, err := q.Amount(decimals); err != nil {
		add(step, field, err.Error())
	}
}
