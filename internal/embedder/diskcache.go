package embedder

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"go.etcd.io/bbolt"
)

var bucketVectors = []byte("vectors")

// DiskCache persists vectors across restarts in a bbolt file, keyed like the
// in-memory Cache. Re-indexing an unchanged project then needs no provider
// calls at all.
type DiskCache struct {
	db *bbolt.DB
}

// OpenDiskCache opens or creates the cache file at path
func OpenDiskCache(path string) (*DiskCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init embedding cache: %w", err)
	}

	return &DiskCache{db: db}, nil
}

// Get returns the vector stored under key
func (d *DiskCache) Get(key string) ([]float32, bool) {
	var out []float32
	err := d.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketVectors).Get([]byte(key))
		if data == nil {
			return nil
		}
		out = decodeVector(data)
		return nil
	})
	if err != nil || out == nil {
		return nil, false
	}
	return out, true
}

// PutAll stores several vectors in one transaction
func (d *DiskCache) PutAll(entries map[string][]float32) error {
	if len(entries) == 0 {
		return nil
	}
	return d.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for key, v := range entries {
			if err := b.Put([]byte(key), encodeVector(v)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len returns the number of cached vectors
func (d *DiskCache) Len() int {
	n := 0
	_ = d.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketVectors).Stats().KeyN
		return nil
	})
	return n
}

// Close closes the underlying database
func (d *DiskCache) Close() error {
	return d.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector copies out of the bbolt page, which is only valid inside the
// transaction.
func decodeVector(data []byte) []float32 {
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}
