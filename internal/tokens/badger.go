package tokens

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	defaultBadgerDir = "~/.local/share/ticketbook/tokens"
	keyPrefix        = "token:"
)

// BadgerStorage keeps tokens in an embedded badger database.
type BadgerStorage struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the database in dir. An empty dir uses the
// default data directory.
func OpenBadger(dir string) (*BadgerStorage, error) {
	if dir == "" {
		dir = defaultBadgerDir
	}
	resolved, err := expandPath(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve badger dir: %w", err)
	}
	return openBadger(badger.DefaultOptions(resolved))
}

// OpenBadgerInMemory opens a database that lives only in memory.
func OpenBadgerInMemory() (*BadgerStorage, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true))
}

func openBadger(opts badger.Options) (*BadgerStorage, error) {
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStorage{db: db}, nil
}

func (s *BadgerStorage) Get(_ context.Context, key string) (string, error) {
	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get token: %w", err)
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *BadgerStorage) Set(_ context.Context, key, value string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keyPrefix+key), []byte(value)); err != nil {
			return fmt.Errorf("set token: %w", err)
		}
		return nil
	})
}

func (s *BadgerStorage) Delete(_ context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(keyPrefix + key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete token: %w", err)
		}
		return nil
	})
}

func (s *BadgerStorage) Close() error {
	return s.db.Close()
}
