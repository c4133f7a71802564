// Copyright (c) 2026 boardirc contributors
// released under the MIT license

package kv

import (
	"errors"

	"github.com/tidwall/buntdb"
)

// InMemory is the buntdb path for a store that is never written to disk.
const InMemory = ":memory:"

/**********************
 * Transactions
 */
type buntdbTx struct {
	tx *buntdb.Tx
}

func (tx buntdbTx) AscendGreaterOrEqual(pivot string, iterator func(key, value string) bool) error {
	return tx.tx.AscendGreaterOrEqual("", pivot, iterator)
}

func (tx buntdbTx) Get(key string) (val string, err error) {
	val, err = tx.tx.Get(key)
	return val, translateErr(err)
}

func (tx buntdbTx) Set(key string, value string) (previousValue string, replaced bool, err error) {
	return tx.tx.Set(key, value, nil)
}

func translateErr(err error) error {
	if errors.Is(err, buntdb.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

/**********************
 * Database
 */

// BuntdbStore is a Store backed by a buntdb database.
type BuntdbStore struct {
	db *buntdb.DB
}

// BuntdbOpen opens (or creates) the database at path. Use InMemory for a
// store that lives only as long as the process.
func BuntdbOpen(path string) (*BuntdbStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	if path != InMemory {
		// board contents are not kept across restarts
		err = db.Update(func(tx *buntdb.Tx) error {
			return tx.DeleteAll()
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return &BuntdbStore{db: db}, nil
}

func (kv *BuntdbStore) Close() error {
	return kv.db.Close()
}

func (kv *BuntdbStore) Update(fn func(tx Tx) error) error {
	return kv.db.Update(func(tx *buntdb.Tx) error {
		return fn(buntdbTx{tx})
	})
}

func (kv *BuntdbStore) View(fn func(tx Tx) error) error {
	return kv.db.View(func(tx *buntdb.Tx) error {
		return fn(buntdbTx{tx})
	})
}
