package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/features"
	"github.com/Overclock-Validator/rewardpool/pkg/replay"
	"github.com/Overclock-Validator/rewardpool/pkg/rewards"
	"github.com/Overclock-Validator/rewardpool/pkg/sealevel"
	"github.com/VividCortex/ewma"
	"github.com/gagliardetto/solana-go"
	"github.com/minio/sha256-simd"
	"github.com/samber/lo"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"k8s.io/klog/v2"
)

const (
	poolReserve   = 1_000_000
	funderBalance = 1 << 60
)

var ErrBadConfig = errors.New("bench: pools, positions and rounds must be positive")

// Config shapes the workload. Every round funds and distributes each pool
// once; pools share no accounts, so a round's transactions can all run at
// the same time.
type Config struct {
	Pools       int
	Positions   int
	Rounds      int
	Reward      uint64
	Parallelism int
	Policy      rewards.RemainderPolicy
}

type Summary struct {
	Transactions  int
	Failed        int
	Distributed   uint64
	Paid          uint64
	ComputeUnits  uint64
	TxPerSecond   float64
	Elapsed       time.Duration
	FinalBankHash [32]byte
}

type benchPool struct {
	key     solana.PublicKey
	funder  solana.PublicKey
	owners  []solana.PublicKey
	records []solana.PublicKey
}

type workload struct {
	cfg            Config
	accts          accounts.Accounts
	features       *features.Features
	locks          *replay.AccountLocks
	pools          []*benchPool
	slot           uint64
	parentBankhash [32]byte
}

func benchKey(format string, args ...any) solana.PublicKey {
	sum := sha256.Sum256([]byte(fmt.Sprintf(format, args...)))
	return solana.PublicKeyFromBytes(sum[:])
}

func (w *workload) set(acct *accounts.Account) error {
	key := [32]byte(acct.Key)
	return w.accts.SetAccount(&key, acct)
}

// stakeFor spreads stakes unevenly so that most rounds leave a remainder.
func stakeFor(position int) uint64 {
	return uint64(position%7+1) * 100
}

func (w *workload) allocate() error {
	for i := 0; i < w.cfg.Pools; i++ {
		p := &benchPool{key: benchKey("pool/%d", i), funder: benchKey("funder/%d", i)}
		if err := w.set(&accounts.Account{Key: p.key, Lamports: poolReserve, Owner: sealevel.RewardPoolProgramAddr, Data: make([]byte, sealevel.RewardPoolStateSize)}); err != nil {
			return err
		}
		if err := w.set(&accounts.Account{Key: p.funder, Lamports: funderBalance, Owner: sealevel.SystemProgramAddr, Data: []byte{}}); err != nil {
			return err
		}

		for j := 0; j < w.cfg.Positions; j++ {
			owner := benchKey("pool/%d/owner/%d", i, j)
			record, _, err := sealevel.StakingRecordAddress(p.key, owner)
			if err != nil {
				return err
			}
			if err := w.set(&accounts.Account{Key: record, Lamports: poolReserve, Owner: sealevel.RewardPoolProgramAddr, Data: make([]byte, sealevel.StakingRecordStateSize)}); err != nil {
				return err
			}
			p.owners = append(p.owners, owner)
			p.records = append(p.records, record)
		}
		w.pools = append(w.pools, p)
	}
	return nil
}

func (w *workload) setupTxs() ([]*solana.Transaction, error) {
	txs := make([]*solana.Transaction, 0, len(w.pools))
	for _, p := range w.pools {
		instrs := []*sealevel.Instruction{sealevel.NewInitializePoolInstruction(p.key, p.funder, 0, &w.cfg.Policy)}
		for j, owner := range p.owners {
			instrs = append(instrs, sealevel.NewCreateStakingPositionInstruction(p.records[j], p.key, owner, stakeFor(j)))
		}
		tx, err := replay.NewTransaction(p.funder, instrs...)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (w *workload) roundTxs() ([]*solana.Transaction, error) {
	// large pools need more than one instruction's default budget
	var budget []*sealevel.Instruction
	if uint64(w.cfg.Positions)*sealevel.CURewardPoolPerPositionComputeUnits > sealevel.DefaultInstructionComputeUnitLimit {
		budget = append(budget, sealevel.NewSetComputeUnitLimitInstruction(sealevel.MaxComputeUnitLimit))
	}

	txs := make([]*solana.Transaction, 0, len(w.pools))
	for _, p := range w.pools {
		tx, err := replay.NewTransaction(p.funder, append(budget,
			sealevel.NewTransferInstruction(p.funder, p.key, w.cfg.Reward),
			sealevel.NewSyncPoolInstruction(p.key),
			sealevel.NewDistributeInstruction(p.key, p.records, p.owners),
		)...)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (w *workload) processBlock(ctx context.Context, txs []*solana.Transaction) (*replay.BlockResult, error) {
	block := &replay.Block{
		Slot:           w.slot,
		ParentBankhash: w.parentBankhash,
		Blockhash:      sha256.Sum256(w.parentBankhash[:]),
		Transactions:   txs,
	}
	result, err := replay.ProcessBlock(ctx, w.accts, w.features, block, w.locks, w.cfg.Parallelism)
	if err != nil {
		return nil, err
	}
	w.parentBankhash = result.BankHash
	w.slot++
	return result, nil
}

// payouts returns the balance accumulated by every position owner across all
// pools.
func (w *workload) payouts() ([]uint64, error) {
	var payouts []uint64
	for _, p := range w.pools {
		for _, owner := range p.owners {
			key := [32]byte(owner)
			acct, err := w.accts.GetAccount(&key)
			if err != nil {
				return nil, err
			}
			payouts = append(payouts, acct.Lamports)
		}
	}
	return payouts, nil
}

// Run builds the pools in a fresh slot and then replays cfg.Rounds slots of
// distributions, drawing a progress bar on progress.
func Run(ctx context.Context, cfg Config, accts accounts.Accounts, progress io.Writer) (*Summary, error) {
	if cfg.Pools <= 0 || cfg.Positions <= 0 || cfg.Rounds <= 0 {
		return nil, ErrBadConfig
	}

	w := &workload{
		cfg:      cfg,
		accts:    accts,
		features: features.NewFeaturesDefault(),
		locks:    replay.NewAccountLocks(0),
		slot:     1,
	}
	if err := w.allocate(); err != nil {
		return nil, fmt.Errorf("allocating accounts: %w", err)
	}

	setup, err := w.setupTxs()
	if err != nil {
		return nil, err
	}
	setupResult, err := w.processBlock(ctx, setup)
	if err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}
	if n := setupResult.NumFailed(); n > 0 {
		return nil, fmt.Errorf("setup: %d of %d transactions failed", n, len(setup))
	}

	p := mpb.NewWithContext(ctx, mpb.WithOutput(progress), mpb.WithWidth(48))
	bar := p.AddBar(int64(cfg.Rounds),
		mpb.PrependDecorators(
			decor.Name("rounds "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.Name(" "),
			decor.AverageSpeed(0, "%.1f rounds/s"),
		),
	)

	summary := new(Summary)
	throughput := ewma.NewMovingAverage()
	start := time.Now()

	for round := 0; round < cfg.Rounds; round++ {
		txs, err := w.roundTxs()
		if err != nil {
			bar.Abort(false)
			p.Wait()
			return nil, err
		}

		roundStart := time.Now()
		result, err := w.processBlock(ctx, txs)
		if err != nil {
			bar.Abort(false)
			p.Wait()
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		throughput.Add(float64(len(txs)) / time.Since(roundStart).Seconds())

		summary.Transactions += len(result.Results)
		summary.Failed += result.NumFailed()
		summary.ComputeUnits += lo.SumBy(result.Results, func(r *replay.TxResult) uint64 { return r.ComputeUnitsUsed })
		for _, r := range result.Results {
			summary.Distributed += lo.SumBy(r.Distributions, func(d *sealevel.DistributionReport) uint64 { return d.Distributed })
		}
		summary.FinalBankHash = result.BankHash
		bar.Increment()
	}
	p.Wait()

	payouts, err := w.payouts()
	if err != nil {
		return nil, err
	}
	summary.Paid = lo.Sum(payouts)
	summary.Elapsed = time.Since(start)
	summary.TxPerSecond = throughput.Value()
	klog.Infof("bench: %d transactions in %s, %.0f tx/s", summary.Transactions, summary.Elapsed, summary.TxPerSecond)
	return summary, nil
}
