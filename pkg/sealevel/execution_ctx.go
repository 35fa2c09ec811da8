package sealevel

import (
	"fmt"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/cu"
	"github.com/Overclock-Validator/rewardpool/pkg/features"
	"github.com/Overclock-Validator/rewardpool/pkg/global"
	"github.com/gagliardetto/solana-go"
	cmap "github.com/orcaman/concurrent-map/v2"
	"k8s.io/klog/v2"
)

type ExecutionCtx struct {
	Log                Logger
	TransactionContext *TransactionCtx
	GlobalCtx          global.GlobalCtx
	ComputeMeter       cu.ComputeMeter
	SlotCtx            *SlotCtx
}

type SlotCtx struct {
	Accounts      accounts.Accounts
	Slot          uint64
	ParentSlot    uint64
	Blockhash     [32]byte
	ModifiedAccts cmap.ConcurrentMap[solana.PublicKey, bool]
	Features      *features.Features
}

func NewSlotCtx(accts accounts.Accounts, slot uint64, f *features.Features) *SlotCtx {
	return &SlotCtx{
		Accounts:      accts,
		Slot:          slot,
		ParentSlot:    slot,
		ModifiedAccts: cmap.NewStringer[solana.PublicKey, bool](),
		Features:      f,
	}
}

func (slotCtx *SlotCtx) GetAccount(pubkey solana.PublicKey) (*accounts.Account, error) {
	pk := [32]byte(pubkey)
	return slotCtx.Accounts.GetAccount(&pk)
}

func (slotCtx *SlotCtx) SetAccount(pubkey solana.PublicKey, acct *accounts.Account) error {
	pk := [32]byte(pubkey)
	return slotCtx.Accounts.SetAccount(&pk, acct)
}

func (slotCtx *SlotCtx) SetAccounts(accts []*accounts.Account) error {
	return slotCtx.Accounts.SetAccounts(accts)
}

func (execCtx *ExecutionCtx) Features() *features.Features {
	return execCtx.GlobalCtx.Features
}

// IsFeatureActive reports whether gate had activated by the slot being
// executed.
func (execCtx *ExecutionCtx) IsFeatureActive(gate features.FeatureGate) bool {
	var slot uint64
	if execCtx.SlotCtx != nil {
		slot = execCtx.SlotCtx.Slot
	}
	return execCtx.Features().IsActiveAt(gate, slot)
}

func (execCtx *ExecutionCtx) ProcessInstruction(instrData []byte, instructionAccts []InstructionAccount, programIndices []uint64) error {
	nextInstrCtx, err := execCtx.TransactionContext.NextInstructionCtx()
	if err != nil {
		return err
	}

	nextInstrCtx.Configure(programIndices, instructionAccts, instrData)

	err = execCtx.Push()
	if err != nil {
		return err
	}

	err1 := execCtx.ExecuteInstruction()

	err2 := execCtx.Pop()

	if err1 != nil {
		return err1
	} else if err2 != nil {
		return err2
	}

	return nil
}

func (execCtx *ExecutionCtx) ExecuteInstruction() error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	borrowedRootAccount, err := instrCtx.BorrowProgramAccount(txCtx, 0)
	if err != nil {
		klog.Infof("BorrowProgramAccount failed: %s", err)
		return InstrErrUnsupportedProgramId
	}

	programId := borrowedRootAccount.Key()
	ownerId := borrowedRootAccount.Owner()
	executable := borrowedRootAccount.IsExecutable()
	borrowedRootAccount.Drop()

	if ownerId != NativeLoaderAddr {
		klog.Errorf("program %s is not a builtin (owner %s)", programId, ownerId)
		return InstrErrUnsupportedProgramId
	}
	if !executable {
		klog.Errorf("account %s is not executable", programId)
		return InstrErrAccountNotExecutable
	}

	nativeProgramFn, err := resolveNativeProgramById(programId)
	if err != nil {
		return err
	}

	klog.V(2).Infof("calling native program %s", programId)
	execCtx.logf("Program %s invoke [%d]", programId, txCtx.InstructionCtxStackHeight())

	err = nativeProgramFn(execCtx)
	if err != nil {
		execCtx.logf("Program %s failed: %s", programId, err)
	} else {
		execCtx.logf("Program %s success", programId)
	}

	return err
}

func (execCtx *ExecutionCtx) Push() error {
	txCtx := execCtx.TransactionContext

	instrCtx, err := txCtx.NextInstructionCtx()
	if err != nil {
		return err
	}

	_, err = instrCtx.LastProgramKey(txCtx)
	if err != nil {
		return InstrErrUnsupportedProgramId
	}

	return txCtx.Push()
}

func (execCtx *ExecutionCtx) Pop() error {
	return execCtx.TransactionContext.Pop()
}

func (execCtx *ExecutionCtx) StackHeight() uint64 {
	return execCtx.TransactionContext.InstructionCtxStackHeight()
}

func (execCtx *ExecutionCtx) logf(format string, args ...any) {
	if execCtx.Log == nil {
		return
	}
	execCtx.Log.Log(fmt.Sprintf(format, args...))
}
