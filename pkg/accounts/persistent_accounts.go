package accounts

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Overclock-Validator/rewardpool/pkg/base58"
	bin "github.com/gagliardetto/binary"
	"github.com/syndtr/goleveldb/leveldb"
)

// PersistentAccountsDb stores accounts in a LevelDB directory so that pools
// and staking positions survive across CLI invocations.
type PersistentAccountsDb struct {
	db *leveldb.DB
}

func OpenAccountsDb(dir string) (*PersistentAccountsDb, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &PersistentAccountsDb{db: db}, nil
}

func (m *PersistentAccountsDb) Close() error {
	return m.db.Close()
}

func (m *PersistentAccountsDb) GetAccount(pubkey *[32]byte) (*Account, error) {
	acctBytes, err := m.db.Get(pubkey[:], nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return &Account{Key: *pubkey, Data: []byte{}}, nil
	} else if err != nil {
		return nil, fmt.Errorf("error whilst retrieving account %s: %w", base58.Encode(pubkey[:]), err)
	}

	decoder := bin.NewBinDecoder(acctBytes)
	acct := new(Account)

	err = acct.UnmarshalWithDecoder(decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize account %s: %w", base58.Encode(pubkey[:]), err)
	}
	acct.Key = *pubkey

	return acct, nil
}

func marshalAccount(pubkey []byte, acct *Account) ([]byte, error) {
	writer := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(writer)

	err := acct.MarshalWithEncoder(encoder)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize account %s: %w", base58.Encode(pubkey), err)
	}
	return writer.Bytes(), nil
}

func (m *PersistentAccountsDb) SetAccount(pubkey *[32]byte, acct *Account) error {
	acctBytes, err := marshalAccount(pubkey[:], acct)
	if err != nil {
		return err
	}

	err = m.db.Put(pubkey[:], acctBytes, nil)
	if err != nil {
		return fmt.Errorf("error setting account for %s: %w", base58.Encode(pubkey[:]), err)
	}

	return nil
}

// SetAccounts writes all accounts in a single LevelDB batch.
func (m *PersistentAccountsDb) SetAccounts(accts []*Account) error {
	batch := new(leveldb.Batch)
	for _, acct := range accts {
		acctBytes, err := marshalAccount(acct.Key[:], acct)
		if err != nil {
			return err
		}
		batch.Put(acct.Key[:], acctBytes)
	}

	if err := m.db.Write(batch, nil); err != nil {
		return fmt.Errorf("error writing batch of %d accounts: %w", len(accts), err)
	}
	return nil
}

// Keys returns every stored address.
func (m *PersistentAccountsDb) Keys() ([][32]byte, error) {
	iter := m.db.NewIterator(nil, nil)
	defer iter.Release()

	var keys [][32]byte
	for iter.Next() {
		var k [32]byte
		copy(k[:], iter.Key())
		keys = append(keys, k)
	}
	return keys, iter.Error()
}
