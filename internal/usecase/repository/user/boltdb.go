package user

import (
	"context"
	"encoding/binary"
	"encoding/json"

	"medusa/internal/entity"

	bolt "go.etcd.io/bbolt"
)

var (
	usersBucketName = []byte("users")
)

type BoltDBRepository struct {
	db *bolt.DB
}

func NewBoltDB(db *bolt.DB) (*BoltDBRepository, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(usersBucketName)
		return err
	})

	if err != nil {
		return nil, err
	}

	return &BoltDBRepository{db: db}, nil
}

// FindOrCreate returns the stored user or stores the one built by create.
// Lookup and insert share one write transaction, and bbolt runs write
// transactions one at a time, so two first contacts cannot both insert.
func (r *BoltDBRepository) FindOrCreate(_ context.Context, id int64, create func() (entity.User, error)) (entity.User, bool, error) {
	var (
		user    entity.User
		created bool
	)

	err := r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(usersBucketName)

		if raw := bucket.Get(itob(id)); raw != nil {
			return json.Unmarshal(raw, &user)
		}

		var err error
		user, err = create()
		if err != nil {
			return err
		}
		user.ID = id

		raw, err := json.Marshal(user)
		if err != nil {
			return err
		}

		created = true
		return bucket.Put(itob(id), raw)
	})

	if err != nil {
		return entity.User{}, false, err
	}

	return user, created, nil
}

func (r *BoltDBRepository) Get(_ context.Context, id int64) (entity.User, error) {
	var user entity.User

	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(usersBucketName).Get(itob(id))
		if raw == nil {
			return entity.ErrNotFound
		}

		return json.Unmarshal(raw, &user)
	})

	if err != nil {
		return entity.User{}, err
	}

	return user, nil
}

func (r *BoltDBRepository) UpdateCachedBalance(_ context.Context, id int64, wei string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(usersBucketName)

		raw := bucket.Get(itob(id))
		if raw == nil {
			return entity.ErrNotFound
		}

		var user entity.User
		if err := json.Unmarshal(raw, &user); err != nil {
			return err
		}
		user.CachedBalance = wei

		raw, err := json.Marshal(user)
		if err != nil {
			return err
		}

		return bucket.Put(itob(id), raw)
	})
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}
