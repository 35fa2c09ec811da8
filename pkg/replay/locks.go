package replay

import (
	"slices"
	"sync"
	"time"

	"github.com/Overclock-Validator/rewardpool/pkg/metrics"
	"github.com/cespare/xxhash/v2"
	"github.com/gagliardetto/solana-go"
)

const DefaultLockStripes = 1024

// AccountLocks hands out exclusive (write) and shared (read) access to
// accounts. Keys are striped over a fixed set of RWMutexes; two keys sharing
// a stripe merely serialize more than strictly needed.
type AccountLocks struct {
	stripes []sync.RWMutex
}

func NewAccountLocks(numStripes int) *AccountLocks {
	if numStripes <= 0 {
		numStripes = DefaultLockStripes
	}
	return &AccountLocks{stripes: make([]sync.RWMutex, numStripes)}
}

type stripeLock struct {
	idx   int
	write bool
}

// LockGuard releases the stripes taken by Lock.
type LockGuard struct {
	locks *AccountLocks
	held  []stripeLock
	once  sync.Once
}

func (locks *AccountLocks) stripeOf(pubkey solana.PublicKey) int {
	return int(xxhash.Sum64(pubkey[:]) % uint64(len(locks.stripes)))
}

// Lock blocks until every writable key is held exclusively and every readonly
// key is held shared. Stripes are always taken in ascending order, so
// concurrent callers cannot deadlock.
func (locks *AccountLocks) Lock(writable []solana.PublicKey, readonly []solana.PublicKey) *LockGuard {
	want := make(map[int]bool, len(writable)+len(readonly))
	for _, pk := range readonly {
		stripe := locks.stripeOf(pk)
		if _, ok := want[stripe]; !ok {
			want[stripe] = false
		}
	}
	for _, pk := range writable {
		want[locks.stripeOf(pk)] = true
	}

	held := make([]stripeLock, 0, len(want))
	for idx, write := range want {
		held = append(held, stripeLock{idx: idx, write: write})
	}
	slices.SortFunc(held, func(a, b stripeLock) int {
		return a.idx - b.idx
	})

	start := time.Now()
	for _, s := range held {
		if s.write {
			locks.stripes[s.idx].Lock()
		} else {
			locks.stripes[s.idx].RLock()
		}
	}
	metrics.LockWaitDuration.Observe(time.Since(start).Seconds())

	return &LockGuard{locks: locks, held: held}
}

func (guard *LockGuard) Unlock() {
	guard.once.Do(func() {
		for i := len(guard.held) - 1; i >= 0; i-- {
			s := guard.held[i]
			if s.write {
				guard.locks.stripes[s.idx].Unlock()
			} else {
				guard.locks.stripes[s.idx].RUnlock()
			}
		}
	})
}

// LockTransaction takes the locks for every account tx's instructions use.
func (locks *AccountLocks) LockTransaction(tx *solana.Transaction) (*LockGuard, error) {
	writable, readonly, err := lockKeys(tx)
	if err != nil {
		return nil, err
	}
	return locks.Lock(writable, readonly), nil
}
