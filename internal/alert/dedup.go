package alert

import (
	"encoding/binary"
	"time"

	bolt "go.etcd.io/bbolt"
)

var notifiedBucket = []byte("low_stock_notified")

// DedupStore persists the set of product IDs already alerted in the
// current restock cycle, so a product trips exactly one alert between
// dropping below threshold and being restocked. Survives restarts.
type DedupStore struct {
	db *bolt.DB
}

func OpenDedupStore(path string) (*DedupStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(notifiedBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DedupStore{db: db}, nil
}

func key(productId int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(productId))
	return b
}

// MarkNotified records productId as alerted. Returns true when this is
// the first alert of the cycle.
func (s *DedupStore) MarkNotified(productId int64) (bool, error) {
	first := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(notifiedBucket)
		if bucket.Get(key(productId)) == nil {
			first = true
		}
		return bucket.Put(key(productId), []byte(time.Now().Format(time.RFC3339)))
	})
	return first, err
}

// Clear forgets productId, re-arming its alert after a restock.
func (s *DedupStore) Clear(productId int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(notifiedBucket).Delete(key(productId))
	})
}

// IsNotified reports whether productId is currently marked.
func (s *DedupStore) IsNotified(productId int64) bool {
	var found bool
	_ = s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(notifiedBucket).Get(key(productId)) != nil
		return nil
	})
	return found
}

func (s *DedupStore) Close() error {
	return s.db.Close()
}
