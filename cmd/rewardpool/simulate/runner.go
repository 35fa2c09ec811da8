package simulate

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/features"
	"github.com/Overclock-Validator/rewardpool/pkg/replay"
	"github.com/Overclock-Validator/rewardpool/pkg/rewards"
	"github.com/Overclock-Validator/rewardpool/pkg/sealevel"
	"github.com/gagliardetto/solana-go"
	"github.com/minio/sha256-simd"
	"k8s.io/klog/v2"
)

// DefaultReserve is used for pools and staking records that do not name a
// reserve.
const DefaultReserve = 1_000_000

type StepResult struct {
	Name     string
	Slot     uint64
	Tx       *replay.TxResult
	BankHash [32]byte
	Failures []string
}

func (r *StepResult) Passed() bool {
	return len(r.Failures) == 0
}

// Runner builds a scenario's ledger and executes its steps one slot at a
// time.
type Runner struct {
	scenario       *Scenario
	accts          accounts.Accounts
	features       *features.Features
	locks          *replay.AccountLocks
	keys           map[string]solana.PublicKey
	positions      map[string][]string
	slot           uint64
	parentBankhash [32]byte
}

func NewRunner(scenario *Scenario, accts accounts.Accounts) (*Runner, error) {
	f := features.NewFeaturesDefault()
	for _, name := range scenario.Features {
		gate, ok := features.FeatureGateByName(name)
		if !ok {
			return nil, fmt.Errorf("feature %q: %w", name, ErrUnknownName)
		}
		f.EnableFeature(gate, scenario.Slot)
	}
	klog.V(1).Infof("enabled features: %v", f.AllEnabled())

	r := &Runner{
		scenario:  scenario,
		accts:     accts,
		features:  f,
		locks:     replay.NewAccountLocks(0),
		keys:      make(map[string]solana.PublicKey),
		positions: make(map[string][]string),
		slot:      scenario.Slot,
	}

	for _, w := range scenario.Wallets {
		r.keys[w.Name] = r.deriveKey(w.Name)
	}
	for _, p := range scenario.Pools {
		r.keys[p.Name] = r.deriveKey(p.Name)
	}
	return r, nil
}

// deriveKey gives every name a stable address, so that a persistent ledger
// can be reopened by the same scenario.
func (r *Runner) deriveKey(name string) solana.PublicKey {
	sum := sha256.Sum256([]byte(r.scenario.Name + "/" + name))
	return solana.PublicKeyFromBytes(sum[:])
}

func (r *Runner) Key(name string) solana.PublicKey {
	return r.keys[name]
}

func (r *Runner) account(pubkey solana.PublicKey) (*accounts.Account, error) {
	key := [32]byte(pubkey)
	return r.accts.GetAccount(&key)
}

func (r *Runner) setAccount(acct *accounts.Account) error {
	key := [32]byte(acct.Key)
	return r.accts.SetAccount(&key, acct)
}

// Balance is the lamport balance of a wallet, or the distributable balance of
// a pool.
func (r *Runner) Balance(name string) (uint64, error) {
	acct, err := r.account(r.keys[name])
	if err != nil {
		return 0, err
	}
	if acct.Owner != sealevel.RewardPoolProgramAddr {
		return acct.Lamports, nil
	}

	state, err := sealevel.UnmarshalRewardPoolState(acct.Data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return state.AvailableBalance, nil
}

// allocate stands in for account creation: it gives a program-owned account
// its size and lamports unless it already exists.
func (r *Runner) allocate(pubkey solana.PublicKey, size int, lamports uint64) (bool, error) {
	acct, err := r.account(pubkey)
	if err != nil {
		return false, err
	}
	if acct.Owner == sealevel.RewardPoolProgramAddr {
		return false, nil
	}

	acct = &accounts.Account{Key: pubkey, Lamports: lamports, Data: make([]byte, size), Owner: sealevel.RewardPoolProgramAddr}
	return true, r.setAccount(acct)
}

func reserveOrDefault(reserve uint64) uint64 {
	if reserve == 0 {
		return DefaultReserve
	}
	return reserve
}

func (r *Runner) setupSteps() ([]Step, error) {
	for _, w := range r.scenario.Wallets {
		acct, err := r.account(r.keys[w.Name])
		if err != nil {
			return nil, err
		}
		if acct.Lamports == 0 {
			acct.Lamports = w.Lamports
			if err := r.setAccount(acct); err != nil {
				return nil, err
			}
		}
	}

	var steps []Step
	for poolIdx, p := range r.scenario.Pools {
		reserve := reserveOrDefault(p.Reserve)
		created, err := r.allocate(r.keys[p.Name], sealevel.RewardPoolStateSize, reserve+p.InitialBalance)
		if err != nil {
			return nil, err
		}
		if created {
			steps = append(steps, Step{
				Name:         "initialize " + p.Name,
				Payer:        p.Authority,
				Instructions: []Instruction{{initialize: &r.scenario.Pools[poolIdx]}},
			})
		} else {
			klog.Infof("pool %s already exists, skipping initialization", p.Name)
		}

		for _, pos := range p.Positions {
			r.positions[p.Name] = append(r.positions[p.Name], pos.Owner)

			record, _, err := sealevel.StakingRecordAddress(r.keys[p.Name], r.keys[pos.Owner])
			if err != nil {
				return nil, err
			}
			created, err := r.allocate(record, sealevel.StakingRecordStateSize, reserve)
			if err != nil {
				return nil, err
			}
			if created {
				steps = append(steps, Step{
					Name:         fmt.Sprintf("stake %d for %s in %s", pos.Stake, pos.Owner, p.Name),
					Payer:        pos.Owner,
					Instructions: []Instruction{{CreatePosition: &CreatePositionInstr{Pool: p.Name, Owner: pos.Owner, Stake: pos.Stake}}},
				})
			}
		}
	}
	return steps, nil
}

func (r *Runner) buildInstruction(instr *Instruction) (*sealevel.Instruction, error) {
	switch {
	case instr.Distribute != nil:
		d := instr.Distribute
		owners := d.Owners
		if len(owners) == 0 {
			owners = r.positions[d.Pool]
		}
		destinations := d.Destinations
		if len(destinations) == 0 {
			destinations = owners
		}

		pool := r.keys[d.Pool]
		records := make([]solana.PublicKey, 0, len(owners))
		for _, owner := range owners {
			record, _, err := sealevel.StakingRecordAddress(pool, r.keys[owner])
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
		dests := make([]solana.PublicKey, 0, len(destinations))
		for _, dest := range destinations {
			dests = append(dests, r.keys[dest])
		}
		return sealevel.NewDistributeInstruction(pool, records, dests), nil

	case instr.Transfer != nil:
		return sealevel.NewTransferInstruction(r.keys[instr.Transfer.From], r.keys[instr.Transfer.To], instr.Transfer.Lamports), nil

	case instr.Sync != nil:
		return sealevel.NewSyncPoolInstruction(r.keys[instr.Sync.Pool]), nil

	case instr.SetPolicy != nil:
		s := instr.SetPolicy
		policy, err := rewards.ParseRemainderPolicy(s.Policy)
		if err != nil {
			return nil, err
		}
		return sealevel.NewSetRemainderPolicyInstruction(r.keys[s.Pool], r.keys[s.Authority], policy), nil

	case instr.initialize != nil:
		p := instr.initialize
		// an unset policy is left to the LargestRemainderDefault gate
		var policy *rewards.RemainderPolicy
		if p.Policy != "" {
			parsed, err := rewards.ParseRemainderPolicy(p.Policy)
			if err != nil {
				return nil, err
			}
			policy = &parsed
		}
		return sealevel.NewInitializePoolInstruction(r.keys[p.Name], r.keys[p.Authority], p.InitialBalance, policy), nil

	case instr.CreatePosition != nil:
		c := instr.CreatePosition
		pool := r.keys[c.Pool]
		owner := r.keys[c.Owner]
		record, _, err := sealevel.StakingRecordAddress(pool, owner)
		if err != nil {
			return nil, err
		}
		return sealevel.NewCreateStakingPositionInstruction(record, pool, owner, c.Stake), nil
	}

	return nil, ErrBadInstruction
}

func (r *Runner) payer(step *Step) solana.PublicKey {
	if step.Payer != "" {
		return r.keys[step.Payer]
	}
	if len(r.scenario.Wallets) > 0 {
		return r.keys[r.scenario.Wallets[0].Name]
	}
	return r.deriveKey("payer")
}

func errorName(err error) string {
	name := err.Error()
	for _, prefix := range []string{"InstrErr", "RewardPoolErr", "SystemProgErr"} {
		name = strings.TrimPrefix(name, prefix)
	}
	return name
}

func (r *Runner) check(step *Step, result *StepResult) error {
	tx := result.Tx
	switch {
	case step.ExpectError == "" && !tx.Succeeded():
		result.Failures = append(result.Failures, fmt.Sprintf("expected success, got %s", tx.Err))
	case step.ExpectError != "" && tx.Succeeded():
		result.Failures = append(result.Failures, fmt.Sprintf("expected %s, transaction committed", step.ExpectError))
	case step.ExpectError != "" && step.ExpectError != tx.Err.Error() && step.ExpectError != errorName(tx.Err):
		result.Failures = append(result.Failures, fmt.Sprintf("expected %s, got %s", step.ExpectError, tx.Err))
	}

	names := make([]string, 0, len(step.ExpectBalances))
	for name := range step.ExpectBalances {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		got, err := r.Balance(name)
		if err != nil {
			return err
		}
		if want := step.ExpectBalances[name]; got != want {
			result.Failures = append(result.Failures, fmt.Sprintf("balance of %s: expected %d, got %d", name, want, got))
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, step *Step) (*StepResult, error) {
	instrs := make([]*sealevel.Instruction, 0, len(step.Instructions)+1)
	if step.ComputeUnitLimit > 0 {
		instrs = append(instrs, sealevel.NewSetComputeUnitLimitInstruction(step.ComputeUnitLimit))
	}
	for idx := range step.Instructions {
		instr, err := r.buildInstruction(&step.Instructions[idx])
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", step.Name, err)
		}
		instrs = append(instrs, instr)
	}

	tx, err := replay.NewTransaction(r.payer(step), instrs...)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", step.Name, err)
	}

	block := &replay.Block{
		Slot:           r.slot,
		ParentBankhash: r.parentBankhash,
		Blockhash:      sha256.Sum256(r.parentBankhash[:]),
		Transactions:   []*solana.Transaction{tx},
	}
	blockResult, err := replay.ProcessBlock(ctx, r.accts, r.features, block, r.locks, 1)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", step.Name, err)
	}

	result := &StepResult{Name: step.Name, Slot: r.slot, Tx: blockResult.Results[0], BankHash: blockResult.BankHash}
	r.parentBankhash = blockResult.BankHash
	r.slot++

	if result.Tx.Succeeded() {
		for _, instr := range step.Instructions {
			if c := instr.CreatePosition; c != nil && !slices.Contains(r.positions[c.Pool], c.Owner) {
				r.positions[c.Pool] = append(r.positions[c.Pool], c.Owner)
			}
		}
	}

	return result, r.check(step, result)
}

// Run sets the ledger up and executes every step. Expectation failures are
// recorded in the step results; the error reports steps that could not run.
func (r *Runner) Run(ctx context.Context) ([]*StepResult, error) {
	setup, err := r.setupSteps()
	if err != nil {
		return nil, fmt.Errorf("setting up ledger: %w", err)
	}

	var results []*StepResult
	for _, steps := range [][]Step{setup, r.scenario.Steps} {
		for idx := range steps {
			if err := ctx.Err(); err != nil {
				return results, err
			}

			result, err := r.runStep(ctx, &steps[idx])
			if err != nil {
				return results, err
			}
			results = append(results, result)
		}
	}
	return results, nil
}
