package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/boltdb/bolt"
	"github.com/cul-it/cular/models"
)

const transferBucket = "transfer_state"

// BoltStore implements TransferStore on a single-file bolt database,
// for single-node deployments and tests where a Postgres server is
// more than the job needs. Bolt gives the same guarantee that matters
// here: each write happens inside one transaction.
type BoltStore struct {
	db       *bolt.DB
	filePath string
}

// NewBoltStore opens (creating if necessary) the bolt file at
// filePath.
func NewBoltStore(filePath string) (*BoltStore, error) {
	db, err := bolt.Open(filePath, 0644, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot open transfer state db '%s': %v", filePath, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(transferBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db, filePath: filePath}, nil
}

// FilePath returns the path of the bolt file.
func (store *BoltStore) FilePath() string {
	return store.filePath
}

// stateKey builds the composite key. The separator cannot appear in
// job ids (they are uuids) so keys never collide.
func stateKey(jobId, platform string) []byte {
	return []byte(jobId + "|" + platform)
}

func (store *BoltStore) Upsert(state *models.TransferState) error {
	value, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return store.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(transferBucket))
		return bucket.Put(stateKey(state.JobId, state.Platform), value)
	})
}

func (store *BoltStore) Update(state *models.TransferState) error {
	value, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return store.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(transferBucket))
		key := stateKey(state.JobId, state.Platform)
		if bucket.Get(key) == nil {
			return ErrStateNotFound
		}
		return bucket.Put(key, value)
	})
}

func (store *BoltStore) Get(jobId, platform string) (*models.TransferState, error) {
	state := &models.TransferState{}
	err := store.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(transferBucket))
		value := bucket.Get(stateKey(jobId, platform))
		if value == nil {
			return ErrStateNotFound
		}
		return json.Unmarshal(value, state)
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (store *BoltStore) List(jobId string) ([]*models.TransferState, error) {
	states := make([]*models.TransferState, 0)
	prefix := []byte(jobId + "|")
	err := store.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket([]byte(transferBucket)).Cursor()
		for k, v := cursor.Seek(prefix); k != nil && strings.HasPrefix(string(k), string(prefix)); k, v = cursor.Next() {
			state := &models.TransferState{}
			if err := json.Unmarshal(v, state); err != nil {
				return err
			}
			states = append(states, state)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}

func (store *BoltStore) Close() error {
	return store.db.Close()
}
