package simulate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/Overclock-Validator/rewardpool/pkg/features"
	"github.com/Overclock-Validator/rewardpool/pkg/rewards"
	"gopkg.in/yaml.v3"
)

// Scenario describes a ledger to build and the transactions to run on it.
// Every wallet, pool and position owner is referred to by name.
type Scenario struct {
	Name     string   `yaml:"name"`
	Slot     uint64   `yaml:"slot"`
	Features []string `yaml:"features"`
	Wallets  []Wallet `yaml:"wallets"`
	Pools    []Pool   `yaml:"pools"`
	Steps    []Step   `yaml:"steps"`
}

type Wallet struct {
	Name     string `yaml:"name"`
	Lamports uint64 `yaml:"lamports"`
}

type Pool struct {
	Name           string     `yaml:"name"`
	Authority      string     `yaml:"authority"`
	Reserve        uint64     `yaml:"reserve"`
	InitialBalance uint64     `yaml:"initial_balance"`
	Policy         string     `yaml:"policy"`
	Positions      []Position `yaml:"positions"`
}

type Position struct {
	Owner string `yaml:"owner"`
	Stake uint64 `yaml:"stake"`
}

// Step is one transaction. ExpectError and ExpectBalances are checked once it
// has run. A non-zero ComputeUnitLimit is requested ahead of the
// instructions.
type Step struct {
	Name             string            `yaml:"name"`
	Payer            string            `yaml:"payer"`
	ComputeUnitLimit uint32            `yaml:"compute_unit_limit"`
	Instructions     []Instruction     `yaml:"instructions"`
	ExpectError      string            `yaml:"expect_error"`
	ExpectBalances   map[string]uint64 `yaml:"expect_balances"`
}

// Instruction holds exactly one of its fields.
type Instruction struct {
	Distribute     *DistributeInstr     `yaml:"distribute"`
	Transfer       *TransferInstr       `yaml:"transfer"`
	Sync           *PoolRef             `yaml:"sync"`
	SetPolicy      *SetPolicyInstr      `yaml:"set_policy"`
	CreatePosition *CreatePositionInstr `yaml:"create_position"`

	// set by the runner for pools it creates
	initialize *Pool
}

type PoolRef struct {
	Pool string `yaml:"pool"`
}

// DistributeInstr pays the pool's positions. Owners lists the position owners
// to include, in order; Destinations, when set, overrides where each one is
// paid.
type DistributeInstr struct {
	Pool         string   `yaml:"pool"`
	Owners       []string `yaml:"owners"`
	Destinations []string `yaml:"destinations"`
}

type TransferInstr struct {
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Lamports uint64 `yaml:"lamports"`
}

type SetPolicyInstr struct {
	Pool      string `yaml:"pool"`
	Authority string `yaml:"authority"`
	Policy    string `yaml:"policy"`
}

type CreatePositionInstr struct {
	Pool  string `yaml:"pool"`
	Owner string `yaml:"owner"`
	Stake uint64 `yaml:"stake"`
}

var (
	ErrEmptyScenario  = errors.New("scenario has no steps")
	ErrDuplicateName  = errors.New("duplicate name")
	ErrUnknownName    = errors.New("unknown name")
	ErrBadInstruction = errors.New("instruction must set exactly one action")
)

func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scenario, err := ParseScenario(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenario, nil
}

func ParseScenario(r io.Reader) (*Scenario, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	scenario := new(Scenario)
	if err := decoder.Decode(scenario); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return scenario, nil
}

func (i *Instruction) numActions() int {
	var n int
	for _, set := range []bool{i.Distribute != nil, i.Transfer != nil, i.Sync != nil, i.SetPolicy != nil, i.CreatePosition != nil} {
		if set {
			n++
		}
	}
	return n
}

// Validate checks that every name a step refers to is declared.
func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return ErrEmptyScenario
	}

	for _, name := range s.Features {
		if _, ok := features.FeatureGateByName(name); !ok {
			return fmt.Errorf("feature %q: %w", name, ErrUnknownName)
		}
	}

	// wallets and pools share one namespace since transfers may target either
	names := make(map[string]bool)
	declare := func(kind, name string) error {
		if name == "" {
			return fmt.Errorf("%s without a name", kind)
		}
		if names[name] {
			return fmt.Errorf("%s %q: %w", kind, name, ErrDuplicateName)
		}
		names[name] = true
		return nil
	}

	for _, w := range s.Wallets {
		if err := declare("wallet", w.Name); err != nil {
			return err
		}
	}
	pools := make(map[string]bool)
	for _, p := range s.Pools {
		if err := declare("pool", p.Name); err != nil {
			return err
		}
		pools[p.Name] = true
		if _, err := rewards.ParseRemainderPolicy(p.Policy); err != nil {
			return fmt.Errorf("pool %q: %w", p.Name, err)
		}
	}

	wallet := func(ref string) error {
		if !names[ref] || pools[ref] {
			return fmt.Errorf("wallet %q: %w", ref, ErrUnknownName)
		}
		return nil
	}
	pool := func(ref string) error {
		if !pools[ref] {
			return fmt.Errorf("pool %q: %w", ref, ErrUnknownName)
		}
		return nil
	}

	for _, p := range s.Pools {
		if err := wallet(p.Authority); err != nil {
			return fmt.Errorf("pool %q authority: %w", p.Name, err)
		}
		for _, pos := range p.Positions {
			if err := wallet(pos.Owner); err != nil {
				return fmt.Errorf("pool %q position: %w", p.Name, err)
			}
		}
	}

	for idx, step := range s.Steps {
		err := s.validateStep(&step, wallet, pool)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", idx, step.Name, err)
		}
	}
	return nil
}

func (s *Scenario) validateStep(step *Step, wallet, pool func(string) error) error {
	if len(step.Instructions) == 0 {
		return ErrBadInstruction
	}
	if step.Payer != "" {
		if err := wallet(step.Payer); err != nil {
			return err
		}
	}

	for _, instr := range step.Instructions {
		if instr.numActions() != 1 {
			return ErrBadInstruction
		}

		var err error
		switch {
		case instr.Distribute != nil:
			err = pool(instr.Distribute.Pool)
			for _, ref := range slices.Concat(instr.Distribute.Owners, instr.Distribute.Destinations) {
				if err == nil {
					err = wallet(ref)
				}
			}
		case instr.Transfer != nil:
			err = wallet(instr.Transfer.From)
			if err == nil && wallet(instr.Transfer.To) != nil {
				err = pool(instr.Transfer.To)
			}
		case instr.Sync != nil:
			err = pool(instr.Sync.Pool)
		case instr.SetPolicy != nil:
			err = pool(instr.SetPolicy.Pool)
			if err == nil {
				err = wallet(instr.SetPolicy.Authority)
			}
			if err == nil {
				_, err = rewards.ParseRemainderPolicy(instr.SetPolicy.Policy)
			}
		case instr.CreatePosition != nil:
			err = pool(instr.CreatePosition.Pool)
			if err == nil {
				err = wallet(instr.CreatePosition.Owner)
			}
		}
		if err != nil {
			return err
		}
	}

	for name := range step.ExpectBalances {
		if wallet(name) != nil && pool(name) != nil {
			return fmt.Errorf("expected balance of %q: %w", name, ErrUnknownName)
		}
	}
	return nil
}
