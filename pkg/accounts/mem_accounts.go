package accounts

import "sync"

// MemAccounts is an in-memory account store. Lookups of unknown keys return
// an empty system-owned account, mirroring how the ledger treats addresses
// that have never been funded.
type MemAccounts struct {
	mu  *sync.RWMutex
	Map map[[32]byte]*Account
}

func NewMemAccounts() MemAccounts {
	return MemAccounts{
		mu:  new(sync.RWMutex),
		Map: make(map[[32]byte]*Account),
	}
}

func (m MemAccounts) GetAccount(pubkey *[32]byte) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.Map[*pubkey]
	if !ok {
		return &Account{Key: *pubkey, Data: []byte{}}, nil
	}
	return acct.Clone(), nil
}

func (m MemAccounts) SetAccount(pubkey *[32]byte, acc *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := acc.Clone()
	c.Key = *pubkey
	m.Map[*pubkey] = c
	return nil
}

func (m MemAccounts) SetAccounts(accts []*Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, acct := range accts {
		m.Map[[32]byte(acct.Key)] = acct.Clone()
	}
	return nil
}

// Keys returns a snapshot of every stored address.
func (m MemAccounts) Keys() [][32]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([][32]byte, 0, len(m.Map))
	for k := range m.Map {
		keys = append(keys, k)
	}
	return keys
}
