package replay

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/cu"
	"github.com/Overclock-Validator/rewardpool/pkg/global"
	"github.com/Overclock-Validator/rewardpool/pkg/metrics"
	"github.com/Overclock-Validator/rewardpool/pkg/sealevel"
	"github.com/Overclock-Validator/rewardpool/pkg/util"
	"github.com/gagliardetto/solana-go"
	"k8s.io/klog/v2"
)

const (
	instrCtxStackCapacity = 64
	instrTraceCapacity    = 64
)

var (
	TxErrNoInstructions = errors.New("TxErrNoInstructions")
	TxErrNoPayer        = errors.New("TxErrNoPayer")
)

type TxStatus uint8

const (
	TxStatusCommitted TxStatus = iota
	TxStatusFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxStatusCommitted:
		return "committed"
	case TxStatusFailed:
		return "failed"
	}
	return fmt.Sprintf("TxStatus(%d)", uint8(s))
}

// TxResult describes the outcome of one transaction. A failed transaction
// leaves every account exactly as it found it.
type TxResult struct {
	Status           TxStatus
	Err              error
	ErrCode          int
	CustomErrCode    uint32
	IsCustomErr      bool
	FailedInstrIdx   int
	ComputeUnitsUsed uint64
	Logs             []string
	ReturnData       sealevel.TxReturnData
	Distributions    []*sealevel.DistributionReport
	Modified         []solana.PublicKey
}

func (r *TxResult) Succeeded() bool {
	return r.Status == TxStatusCommitted
}

func (r *TxResult) fail(instrIdx int, err error) {
	r.Status = TxStatusFailed
	r.Err = err
	r.ErrCode = sealevel.TranslateErrToInstrErrCode(err)
	r.CustomErrCode, r.IsCustomErr = sealevel.CustomErrCode(err)
	r.FailedInstrIdx = instrIdx
}

// NewTransaction compiles instructions into an unsigned transaction paid for
// by payer.
func NewTransaction(payer solana.PublicKey, instrs ...*sealevel.Instruction) (*solana.Transaction, error) {
	if len(instrs) == 0 {
		return nil, TxErrNoInstructions
	}
	if payer.IsZero() {
		return nil, TxErrNoPayer
	}

	solanaInstrs := make([]solana.Instruction, 0, len(instrs))
	for _, instr := range instrs {
		solanaInstrs = append(solanaInstrs, instr.SolanaInstruction())
	}

	return solana.NewTransaction(solanaInstrs, solana.Hash{}, solana.TransactionPayer(payer))
}

func transactionAcctsFromTx(slotCtx *sealevel.SlotCtx, tx *solana.Transaction) (*sealevel.TransactionAccounts, error) {
	acctsForTx := make([]accounts.Account, 0, len(tx.Message.AccountKeys))

	programIds, err := tx.GetProgramIDs()
	if err != nil {
		return nil, err
	}

	for _, pubkey := range tx.Message.AccountKeys {
		var acct *accounts.Account

		// builtins have no stored state; they are presented as executable
		// accounts owned by the native loader
		if slices.Contains(programIds, pubkey) && sealevel.IsNativeProgram(pubkey) {
			acct = &accounts.Account{Key: pubkey, Owner: sealevel.NativeLoaderAddr, Executable: true, Data: []byte{}}
		} else {
			acct, err = slotCtx.GetAccount(pubkey)
			if err != nil {
				return nil, fmt.Errorf("loading account %s: %w", pubkey, err)
			}
		}

		acctsForTx = append(acctsForTx, *acct)
	}

	return sealevel.NewTransactionAccounts(acctsForTx), nil
}

func newExecCtx(slotCtx *sealevel.SlotCtx, transactionAccts *sealevel.TransactionAccounts, log *sealevel.LogRecorder, computeUnitLimit uint64) *sealevel.ExecutionCtx {
	txCtx := sealevel.NewTransactionCtx(*transactionAccts, instrCtxStackCapacity, instrTraceCapacity)
	return &sealevel.ExecutionCtx{
		Log:                log,
		TransactionContext: txCtx,
		GlobalCtx:          global.GlobalCtx{Features: slotCtx.Features},
		ComputeMeter:       cu.NewComputeMeter(computeUnitLimit),
		SlotCtx:            slotCtx,
	}
}

func instrsFromTx(tx *solana.Transaction) ([]sealevel.Instruction, error) {
	instrs := make([]sealevel.Instruction, len(tx.Message.Instructions))
	for idx, compiledInstr := range tx.Message.Instructions {
		programId, err := tx.ResolveProgramIDIndex(compiledInstr.ProgramIDIndex)
		if err != nil {
			return nil, err
		}

		ams, err := compiledInstr.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			return nil, err
		}

		var acctMetas []sealevel.AccountMeta
		for _, am := range ams {
			acctMeta := sealevel.AccountMeta{Pubkey: am.PublicKey, IsSigner: am.IsSigner, IsWritable: isWritable(tx, am)}
			acctMetas = append(acctMetas, acctMeta)
		}

		instrs[idx] = sealevel.Instruction{Accounts: acctMetas, ProgramId: programId, Data: compiledInstr.Data}
	}

	return instrs, nil
}

func isWritable(tx *solana.Transaction, am *solana.AccountMeta) bool {
	if !am.IsWritable {
		return false
	}

	if sealevel.IsNativeProgram(am.PublicKey) {
		return false
	}

	return !isProgram(tx, am.PublicKey)
}

func isProgram(tx *solana.Transaction, pubkey solana.PublicKey) bool {
	programIds, err := tx.GetProgramIDs()
	if err != nil {
		return false
	}
	return slices.Contains(programIds, pubkey)
}

// lockKeys returns the accounts the transaction's instructions write and
// read. Program accounts are never locked.
func lockKeys(tx *solana.Transaction) (writable []solana.PublicKey, readonly []solana.PublicKey, err error) {
	instrs, err := instrsFromTx(tx)
	if err != nil {
		return nil, nil, err
	}

	for _, instr := range instrs {
		for _, am := range instr.Accounts {
			if am.IsWritable {
				writable = append(writable, am.Pubkey)
			} else if !isProgram(tx, am.Pubkey) {
				readonly = append(readonly, am.Pubkey)
			}
		}
	}

	writable = util.DedupePubkeys(writable)
	readonly = util.DedupePubkeys(readonly)
	readonly = slices.DeleteFunc(readonly, func(pk solana.PublicKey) bool {
		return slices.Contains(writable, pk)
	})

	return writable, readonly, nil
}

// recordModifiedAccounts commits every account touched during the tx's
// execution to the slot in one write.
func recordModifiedAccounts(slotCtx *sealevel.SlotCtx, execCtx *sealevel.ExecutionCtx) ([]solana.PublicKey, error) {
	touched := execCtx.TransactionContext.Accounts.TouchedAccounts()
	if err := slotCtx.SetAccounts(touched); err != nil {
		return nil, fmt.Errorf("unable to commit %d accounts: %w", len(touched), err)
	}

	modified := make([]solana.PublicKey, 0, len(touched))
	for _, newAcctState := range touched {
		slotCtx.ModifiedAccts.Set(newAcctState.Key, true)
		modified = append(modified, newAcctState.Key)
		klog.V(2).Infof("modified account %s after tx", newAcctState.Key)
	}

	return modified, nil
}

func isDistributeInstr(instr *sealevel.Instruction) bool {
	return instr.ProgramId == sealevel.RewardPoolProgramAddr &&
		len(instr.Data) > 0 && instr.Data[0] == sealevel.RewardPoolInstrTypeDistribute
}

// ProcessTransaction executes every instruction of tx against copies of its
// accounts and commits the touched accounts to the slot only if all of them
// succeeded. The returned error reports transactions that could not be
// executed at all; execution failures are described by the TxResult.
func ProcessTransaction(slotCtx *sealevel.SlotCtx, tx *solana.Transaction) (*TxResult, error) {
	instrs, err := instrsFromTx(tx)
	if err != nil {
		return nil, err
	}
	if len(instrs) == 0 {
		return nil, TxErrNoInstructions
	}

	transactionAccts, err := transactionAcctsFromTx(slotCtx, tx)
	if err != nil {
		return nil, err
	}

	result := &TxResult{FailedInstrIdx: -1}

	computeUnitLimit, budgetInstrIdx, err := sealevel.ComputeUnitLimit(instrs)
	if err != nil {
		result.fail(budgetInstrIdx, err)
		klog.Infof("tx rejected, invalid compute budget instruction %d: %s", budgetInstrIdx, err)
		metrics.TransactionsTotal.WithLabelValues(result.Status.String()).Inc()
		metrics.InstructionErrorsTotal.WithLabelValues(result.Err.Error()).Inc()
		return result, nil
	}

	var log sealevel.LogRecorder
	execCtx := newExecCtx(slotCtx, transactionAccts, &log, computeUnitLimit)

	for instrIdx := range instrs {
		instr := &instrs[instrIdx]

		programIdx, err := execCtx.TransactionContext.IndexOfAccount(instr.ProgramId)
		if err != nil {
			return nil, err
		}

		instructionAccts, err := sealevel.InstructionAcctsFromAccountMetas(instr.Accounts, &execCtx.TransactionContext.Accounts)
		if err != nil {
			return nil, err
		}

		err = execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{programIdx})
		if err != nil {
			result.fail(instrIdx, err)
			break
		}

		if isDistributeInstr(instr) {
			_, data := execCtx.TransactionContext.GetReturnData()
			report, err := sealevel.UnmarshalDistributionReport(data)
			if err != nil {
				return nil, fmt.Errorf("decoding distribution report: %w", err)
			}
			result.Distributions = append(result.Distributions, report)
		}
	}

	result.ComputeUnitsUsed = execCtx.ComputeMeter.Used()
	result.Logs = log.Logs
	result.ReturnData = execCtx.TransactionContext.ReturnData

	for _, l := range log.Logs {
		klog.V(2).Infof("%s", l)
	}

	metrics.TransactionComputeUnits.Observe(float64(result.ComputeUnitsUsed))

	// if there was an error in the tx, do not update account states
	if result.Status == TxStatusFailed {
		klog.Infof("tx failed at instruction %d: %s (code %d)", result.FailedInstrIdx, result.Err, result.ErrCode)
		metrics.TransactionsTotal.WithLabelValues(result.Status.String()).Inc()
		metrics.InstructionErrorsTotal.WithLabelValues(result.Err.Error()).Inc()
		result.Distributions = nil
		return result, nil
	}

	result.Modified, err = recordModifiedAccounts(slotCtx, execCtx)
	if err != nil {
		return nil, err
	}

	klog.V(2).Infof("tx committed, %d accounts modified, %d CUs", len(result.Modified), result.ComputeUnitsUsed)
	metrics.TransactionsTotal.WithLabelValues(result.Status.String()).Inc()
	for _, report := range result.Distributions {
		metrics.DistributionsTotal.WithLabelValues(report.Outcome.String()).Inc()
		metrics.DistributedLamportsTotal.Add(float64(report.Distributed))
		metrics.DistributionPositions.Observe(float64(report.Positions))
	}

	return result, nil
}
