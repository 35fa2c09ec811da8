package replay

import (
	"testing"

	"github.com/Overclock-Validator/rewardpool/pkg/accounts"
	"github.com/Overclock-Validator/rewardpool/pkg/features"
	"github.com/Overclock-Validator/rewardpool/pkg/rewards"
	"github.com/Overclock-Validator/rewardpool/pkg/sealevel"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

const testReserve = 1_000_000

func newTestPubkey(t *testing.T) solana.PublicKey {
	privKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return privKey.PublicKey()
}

type testLedger struct {
	t     *testing.T
	accts accounts.MemAccounts
}

func newTestLedger(t *testing.T) *testLedger {
	return &testLedger{t: t, accts: accounts.NewMemAccounts()}
}

func (l *testLedger) slotCtx() *sealevel.SlotCtx {
	return sealevel.NewSlotCtx(l.accts, 1, features.NewFeaturesDefault())
}

func (l *testLedger) set(acct accounts.Account) {
	key := [32]byte(acct.Key)
	require.NoError(l.t, l.accts.SetAccount(&key, &acct))
}

func (l *testLedger) get(pubkey solana.PublicKey) *accounts.Account {
	key := [32]byte(pubkey)
	acct, err := l.accts.GetAccount(&key)
	require.NoError(l.t, err)
	return acct
}

func (l *testLedger) lamports(pubkey solana.PublicKey) uint64 {
	return l.get(pubkey).Lamports
}

func (l *testLedger) pool(pubkey solana.PublicKey) *sealevel.RewardPoolState {
	state, err := sealevel.UnmarshalRewardPoolState(l.get(pubkey).Data)
	require.NoError(l.t, err)
	return state
}

func (l *testLedger) wallet(lamports uint64) solana.PublicKey {
	key := newTestPubkey(l.t)
	l.set(accounts.Account{Key: key, Lamports: lamports, Owner: sealevel.SystemProgramAddr, Data: []byte{}})
	return key
}

func (l *testLedger) rewardPool(available uint64, policy rewards.RemainderPolicy) solana.PublicKey {
	key := newTestPubkey(l.t)
	data, err := sealevel.MarshalRewardPoolState(&sealevel.RewardPoolState{
		Status:           sealevel.RewardPoolStatusPool,
		AvailableBalance: available,
		ReserveLamports:  testReserve,
		RemainderPolicy:  policy,
		Authority:        newTestPubkey(l.t),
	})
	require.NoError(l.t, err)
	l.set(accounts.Account{Key: key, Lamports: testReserve + available, Owner: sealevel.RewardPoolProgramAddr, Data: data})
	return key
}

// position seeds a staking record for a fresh owner and returns the record
// and owner addresses.
func (l *testLedger) position(pool solana.PublicKey, stake uint64) (solana.PublicKey, solana.PublicKey) {
	owner := newTestPubkey(l.t)
	record, _, err := sealevel.StakingRecordAddress(pool, owner)
	require.NoError(l.t, err)

	data, err := sealevel.MarshalStakingRecordState(&sealevel.StakingRecordState{
		Status:      sealevel.RewardPoolStatusStakingRecord,
		Owner:       owner,
		Pool:        pool,
		StakeAmount: stake,
	})
	require.NoError(l.t, err)
	l.set(accounts.Account{Key: record, Lamports: testReserve, Owner: sealevel.RewardPoolProgramAddr, Data: data})
	return record, owner
}

type testPool struct {
	key     solana.PublicKey
	records []solana.PublicKey
	owners  []solana.PublicKey
}

func (l *testLedger) poolWithPositions(available uint64, stakes ...uint64) *testPool {
	p := &testPool{key: l.rewardPool(available, rewards.RemainderToLast)}
	for _, stake := range stakes {
		record, owner := l.position(p.key, stake)
		p.records = append(p.records, record)
		p.owners = append(p.owners, owner)
	}
	return p
}

func (p *testPool) distribute() *sealevel.Instruction {
	return sealevel.NewDistributeInstruction(p.key, p.records, p.owners)
}

func (l *testLedger) tx(payer solana.PublicKey, instrs ...*sealevel.Instruction) *solana.Transaction {
	tx, err := NewTransaction(payer, instrs...)
	require.NoError(l.t, err)
	return tx
}
