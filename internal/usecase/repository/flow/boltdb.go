package flow

import (
	"context"
	"encoding/binary"
	"encoding/json"

	"medusa/internal/entity"

	bolt "go.etcd.io/bbolt"
)

var (
	flowBucketName = []byte("flows")
)

type BoltDBRepository struct {
	db *bolt.DB
}

func NewBoltDB(db *bolt.DB) (*BoltDBRepository, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(flowBucketName)
		return err
	})

	if err != nil {
		return nil, err
	}

	return &BoltDBRepository{db: db}, nil
}

func (r *BoltDBRepository) Save(_ context.Context, userID int64, flow entity.Flow) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		raw, err := json.Marshal(flow)
		if err != nil {
			return err
		}

		return tx.Bucket(flowBucketName).Put(itob(userID), raw)
	})
}

func (r *BoltDBRepository) Get(_ context.Context, userID int64) (entity.Flow, error) {
	var flow entity.Flow

	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(flowBucketName).Get(itob(userID))
		if raw == nil {
			return entity.FlowNotFoundErr
		}

		return json.Unmarshal(raw, &flow)
	})

	if err != nil {
		return entity.Flow{}, err
	}

	return flow, nil
}

func (r *BoltDBRepository) Delete(_ context.Context, userID int64) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(flowBucketName).Delete(itob(userID))
	})
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}
