// Package bolt contains implementations of the DB interfaces used by package
// collect.
package bolt

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"github.com/frankdfr96/MEVresearch/sim"
)

// blockdb caches downloaded blocks, keyed by block number, together with an
// index of the datasets (block ranges) which were fully downloaded.
type blockdb struct {
	db            *bolt.DB
	blockBucket   []byte
	datasetBucket []byte
}

func LoadBlockDB(dbfile string) (*blockdb, error) {
	db, err := bolt.Open(dbfile, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	d := &blockdb{
		db:            db,
		blockBucket:   []byte("blocks"),
		datasetBucket: []byte("datasets"),
	}
	err = d.db.Update(func(tr *bolt.Tx) error {
		if _, err := tr.CreateBucketIfNotExists(d.blockBucket); err != nil {
			return err
		}
		_, err := tr.CreateBucketIfNotExists(d.datasetBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// Get returns the stored blocks with number in [start, end], in increasing
// block number order.
func (d *blockdb) Get(start, end uint64) ([]sim.Block, error) {
	var blocks []sim.Block
	err := d.db.View(func(tr *bolt.Tx) error {
		c := tr.Bucket(d.blockBucket).Cursor()
		startkey, endkey := itob(start), itob(end)
		for k, v := c.Seek(startkey); k != nil && bytes.Compare(k, endkey) <= 0; k, v = c.Next() {
			var b sim.Block
			if err := json.Unmarshal(v, &b); err != nil {
				return fmt.Errorf("block %d: %v", btoi(k), err)
			}
			blocks = append(blocks, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

func (d *blockdb) Put(blocks []sim.Block) error {
	return d.db.Update(func(tr *bolt.Tx) error {
		bkt := tr.Bucket(d.blockBucket)
		for _, b := range blocks {
			value, err := json.Marshal(b)
			if err != nil {
				return err
			}
			if err := bkt.Put(itob(b.Number), value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *blockdb) Delete(start, end uint64) error {
	return d.db.Update(func(tr *bolt.Tx) error {
		b := tr.Bucket(d.blockBucket)
		c := b.Cursor()
		startkey, endkey := itob(start), itob(end)
		var del [][]byte
		for k, _ := c.Seek(startkey); k != nil && bytes.Compare(k, endkey) <= 0; k, _ = c.Next() {
			del = append(del, k)
		}
		for _, k := range del {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDataset looks up the block range stored under key. ok is false if there
// is no such dataset.
func (d *blockdb) GetDataset(key string) (first, last uint64, ok bool, err error) {
	err = d.db.View(func(tr *bolt.Tx) error {
		v := tr.Bucket(d.datasetBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		if len(v) != 16 {
			return fmt.Errorf("dataset %s: bad value length %d", key, len(v))
		}
		first, last, ok = btoi(v[:8]), btoi(v[8:]), true
		return nil
	})
	return
}

func (d *blockdb) PutDataset(key string, first, last uint64) error {
	return d.db.Update(func(tr *bolt.Tx) error {
		v := append(itob(first), itob(last)...)
		return tr.Bucket(d.datasetBucket).Put([]byte(key), v)
	})
}

func (d *blockdb) DeleteDataset(key string) error {
	return d.db.Update(func(tr *bolt.Tx) error {
		return tr.Bucket(d.datasetBucket).Delete([]byte(key))
	})
}

func (d *blockdb) Close() error {
	return d.db.Close()
}

// itob encodes v in big endian, so that keys sort by block number.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// btoi is the inverse of itob.
func btoi(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
