package blockstore

import (
	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	"github.com/rhizomedb/rhizome/cid"
)

var blocksBucket = []byte("blocks")

// Bolt is an on-disk Blockstore backed by the teacher's dependency
// github.com/boltdb/bolt, wired here as the durable counterpart to Mem —
// nothing else in the teacher pack's in-scope code exercised this
// dependency (see DESIGN.md).
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens (creating if necessary) a Bolt-backed blockstore at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "blockstore: open bolt db")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blocksBucket)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "blockstore: create bucket")
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

func (b *Bolt) Has(c cid.Cid) (bool, error) {
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(blocksBucket).Get(c.Bytes()) != nil
		return nil
	})
	if err != nil {
		return false, errors.Wrap(err, "blockstore: has")
	}
	return found, nil
}

func (b *Bolt) Get(c cid.Cid) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(blocksBucket).Get(c.Bytes())
		if v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "blockstore: get")
	}
	return data, nil
}

// PutKeyed stores data under c, silently doing nothing if the key is
// already present (spec.md §6: blocks are immutable).
func (b *Bolt) PutKeyed(c cid.Cid, data []byte) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(blocksBucket)
		if bucket.Get(c.Bytes()) != nil {
			return nil
		}
		return bucket.Put(c.Bytes(), data)
	})
	if err != nil {
		return errors.Wrap(err, "blockstore: put")
	}
	return nil
}
