package replay

import (
	"context"
	"fmt"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/base58"
	"github.com/Overclock-Validator/rewardpool/pkg/features"
	"github.com/Overclock-Validator/rewardpool/pkg/metrics"
	"github.com/Overclock-Validator/rewardpool/pkg/sealevel"
	"github.com/gagliardetto/solana-go"
	"k8s.io/klog/v2"
)

type Block struct {
	Slot           uint64
	ParentBankhash [32]byte
	Blockhash      [32]byte
	Transactions   []*solana.Transaction
}

type BlockResult struct {
	Slot           uint64
	Results        []*TxResult
	NumSignatures  uint64
	AcctsDeltaHash []byte
	BankHash       [32]byte
	ModifiedAccts  []solana.PublicKey
}

func (r *BlockResult) NumFailed() int {
	var n int
	for _, result := range r.Results {
		if result != nil && !result.Succeeded() {
			n++
		}
	}
	return n
}

func numBlockSignatures(block *Block) uint64 {
	var numSigs uint64
	for _, tx := range block.Transactions {
		numSigs += uint64(tx.Message.Header.NumRequiredSignatures)
	}
	return numSigs
}

// ScanFeatures activates every feature gate whose activation account holds
// lamports in accts.
func ScanFeatures(accts accounts.Accounts, slot uint64) (*features.Features, error) {
	f := features.NewFeaturesDefault()
	for _, featureGate := range features.AllFeatureGates {
		addr := featureGate.Address
		acct, err := accts.GetAccount(&addr)
		if err != nil {
			return nil, err
		}
		if acct.Lamports > 0 {
			klog.Infof("enabled feature: %s, %s", featureGate.Name, solana.PublicKeyFromBytes(featureGate.Address[:]))
			f.EnableFeature(featureGate, slot)
		}
	}
	return f, nil
}

// ProcessBlock executes the block's transactions as one batch against accts
// and derives the slot's bank hash from the accounts the batch committed.
func ProcessBlock(ctx context.Context, accts accounts.Accounts, f *features.Features, block *Block, locks *AccountLocks, parallelism int) (*BlockResult, error) {
	slotCtx := sealevel.NewSlotCtx(accts, block.Slot, f)
	slotCtx.Blockhash = block.Blockhash
	if block.Slot > 0 {
		slotCtx.ParentSlot = block.Slot - 1
	}

	klog.Infof("[+] processing slot %d with %d transactions", block.Slot, len(block.Transactions))

	results, err := ProcessBatch(ctx, slotCtx, locks, block.Transactions, parallelism)
	if err != nil {
		return nil, fmt.Errorf("slot %d: %w", block.Slot, err)
	}

	acctsDeltaHash, err := AcctsDeltaHash(slotCtx)
	if err != nil {
		return nil, fmt.Errorf("slot %d: accounts delta hash: %w", block.Slot, err)
	}

	blockResult := &BlockResult{
		Slot:           block.Slot,
		Results:        results,
		NumSignatures:  numBlockSignatures(block),
		AcctsDeltaHash: acctsDeltaHash,
		ModifiedAccts:  slotCtx.ModifiedAccts.Keys(),
	}

	bankHash := calculateBankHash(acctsDeltaHash, block.ParentBankhash, blockResult.NumSignatures, block.Blockhash)
	copy(blockResult.BankHash[:], bankHash)

	klog.Infof("slot %d: %d accounts modified, %d failed transactions, bankhash %s", block.Slot, len(blockResult.ModifiedAccts), blockResult.NumFailed(), base58.Encode(bankHash))
	metrics.SlotsProcessed.Inc()

	return blockResult, nil
}
