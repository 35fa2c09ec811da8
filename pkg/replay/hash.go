package replay

import (
	"encoding/binary"
	"slices"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/sealevel"
	"github.com/Overclock-Validator/rewardpool/pkg/util"
	"github.com/gagliardetto/solana-go"
	"github.com/minio/sha256-simd"
)

type acctHash struct {
	Pubkey solana.PublicKey
	Hash   [32]byte
}

func calculateAccountHashes(accts []*accounts.Account) []acctHash {
	pairs := make([]acctHash, len(accts))
	for idx, acct := range accts {
		pairs[idx].Pubkey = acct.Key
		copy(pairs[idx].Hash[:], util.CalculateAcctHash(*acct))
	}
	return pairs
}

const merkleFanout = 16

func divCeil(x uint64, y uint64) uint64 {
	result := x / y
	if (x % y) != 0 {
		result++
	}
	return result
}

func computeMerkleRootLoop(acctHashes [][]byte) []byte {
	if len(acctHashes) == 0 {
		return nil
	}

	totalHashes := uint64(len(acctHashes))
	chunks := divCeil(totalHashes, merkleFanout)

	results := make([][]byte, chunks)

	for i := uint64(0); i < chunks; i++ {
		startIdx := i * merkleFanout
		endIdx := min(startIdx+merkleFanout, totalHashes)

		hasher := sha256.New()
		for _, h := range acctHashes[startIdx:endIdx] {
			hasher.Write(h)
		}

		results[i] = hasher.Sum(nil)
	}

	if len(results) == 1 {
		return results[0]
	}
	return computeMerkleRootLoop(results)
}

func calculateAcctsDeltaHash(accts []*accounts.Account) []byte {
	acctHashes := calculateAccountHashes(accts)

	// sort by pubkey
	slices.SortFunc(acctHashes, func(a, b acctHash) int {
		return util.ComparePubkeys(a.Pubkey, b.Pubkey)
	})

	hashes := make([][]byte, len(acctHashes))
	for idx, ah := range acctHashes {
		hashes[idx] = make([]byte, 32)
		copy(hashes[idx], ah.Hash[:])
	}

	return computeMerkleRootLoop(hashes)
}

// modifiedAccounts loads the current state of every account the slot has
// written.
func modifiedAccounts(slotCtx *sealevel.SlotCtx) ([]*accounts.Account, error) {
	keys := slotCtx.ModifiedAccts.Keys()
	accts := make([]*accounts.Account, 0, len(keys))
	for _, pk := range keys {
		acct, err := slotCtx.GetAccount(pk)
		if err != nil {
			return nil, err
		}
		accts = append(accts, acct)
	}
	return accts, nil
}

// AcctsDeltaHash is the merkle root over the hashes of every account the
// slot has modified, in key order.
func AcctsDeltaHash(slotCtx *sealevel.SlotCtx) ([]byte, error) {
	accts, err := modifiedAccounts(slotCtx)
	if err != nil {
		return nil, err
	}
	return calculateAcctsDeltaHash(accts), nil
}

func calculateBankHash(acctsDeltaHash []byte, parentBankHash [32]byte, numSigs uint64, blockHash [32]byte) []byte {
	hasher := sha256.New()
	hasher.Write(parentBankHash[:])
	hasher.Write(acctsDeltaHash[:])

	var numSigsBytes [8]byte
	binary.LittleEndian.PutUint64(numSigsBytes[:], numSigs)

	hasher.Write(numSigsBytes[:])
	hasher.Write(blockHash[:])

	return hasher.Sum(nil)
}
