package idempotence

import (
	"context"
	"encoding/binary"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	idempotenceBucketName = []byte("idempotence")
)

type BoltDBRepository struct {
	db  *bolt.DB
	now func() time.Time
}

func NewBoltDB(db *bolt.DB) (*BoltDBRepository, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(idempotenceBucketName)
		return err
	})

	if err != nil {
		return nil, err
	}

	return &BoltDBRepository{db: db, now: time.Now}, nil
}

func (r *BoltDBRepository) MakeRecord(_ context.Context, id string) (ok bool, err error) {
	err = r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(idempotenceBucketName)
		if bucket.Get([]byte(id)) != nil {
			ok = false
			return nil
		}

		stamp := make([]byte, 8)
		binary.BigEndian.PutUint64(stamp, uint64(r.now().Unix()))

		if err := bucket.Put([]byte(id), stamp); err != nil {
			return err
		}

		ok = true
		return nil
	})
	return
}

// Prune removes records made before the cutoff and reports how many were
// removed.
func (r *BoltDBRepository) Prune(_ context.Context, before time.Time) (removed int, err error) {
	err = r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(idempotenceBucketName)

		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			if len(v) == 8 && int64(binary.BigEndian.Uint64(v)) >= before.Unix() {
				return nil
			}
			stale = append(stale, append([]byte(nil), k...))
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return
}
