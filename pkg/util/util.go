package util

import (
	"bytes"
	"encoding/binary"
	"slices"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/gagliardetto/solana-go"
	"github.com/zeebo/blake3"
)

func ComparePubkeys(a solana.PublicKey, b solana.PublicKey) int {
	return bytes.Compare(a[:], b[:])
}

// DedupePubkeys sorts pubkeys in place and returns the sorted unique prefix.
func DedupePubkeys(pubkeys []solana.PublicKey) []solana.PublicKey {
	slices.SortFunc(pubkeys, ComparePubkeys)
	return slices.Compact(pubkeys)
}

// CalculateAcctHash hashes an account's committed state: lamports, rent
// epoch, data, executable flag, owner and address.
func CalculateAcctHash(acct accounts.Account) []byte {
	buf := make([]byte, 0, 8+8+len(acct.Data)+1+32+32)
	buf = binary.LittleEndian.AppendUint64(buf, acct.Lamports)
	buf = binary.LittleEndian.AppendUint64(buf, acct.RentEpoch)
	buf = append(buf, acct.Data...)
	if acct.Executable {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, acct.Owner[:]...)
	buf = append(buf, acct.Key[:]...)

	sum := blake3.Sum256(buf)
	return sum[:]
}
