// Package callback completes redirect-based auth flows. It registers the
// GET callback routes idempotently on the host router, keeps the pending
// PKCE flow state that bridges the sign-in step and the redirect, and
// exchanges callback codes for sessions.
package callback

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var flowBucket = []byte("pending-flows")

// ErrFlowNotFound means a callback referenced a pending flow that does not
// exist or already expired.
var ErrFlowNotFound = errors.New("pending auth flow not found or expired")

// flowTTL bounds how long a browser redirect may take before the pending
// flow is discarded.
const flowTTL = 10 * time.Minute

// FlowState is the per-sign-in state persisted between the OAuth/OTP
// sign-in step and its callback: the PKCE verifier the code exchange needs,
// the client configuration that started the flow, and the optional redirect
// target for after completion.
type FlowState struct {
	ID        string    `json:"id"`
	ClientKey string    `json:"clientKey"`
	Provider  string    `json:"provider"`
	Verifier  string    `json:"verifier,omitempty"`
	Next      string    `json:"next,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists pending flows in a bbolt file so callbacks survive a
// restart between redirect and completion.
type Store struct {
	db *bolt.DB
}

// OpenStore opens (creating if needed) the flow-state database.
func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open flow state store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, errBucket := tx.CreateBucketIfNotExists(flowBucket)
		return errBucket
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize flow state store: %w", err)
	}
	return &Store{db: db}, nil
}

// Put persists a pending flow and prunes expired ones.
func (s *Store) Put(fs *FlowState) error {
	if fs == nil || fs.ID == "" {
		return errors.New("flow state requires an ID")
	}
	if fs.CreatedAt.IsZero() {
		fs.CreatedAt = time.Now()
	}
	data, err := json.Marshal(fs)
	if err != nil {
		return fmt.Errorf("failed to encode flow state: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(flowBucket)
		pruneExpired(bucket)
		return bucket.Put([]byte(fs.ID), data)
	})
}

// Take returns the pending flow under id and removes it; a flow completes
// at most once.
func (s *Store) Take(id string) (*FlowState, error) {
	var fs *FlowState
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(flowBucket)
		data := bucket.Get([]byte(id))
		if data == nil {
			return ErrFlowNotFound
		}
		if errDelete := bucket.Delete([]byte(id)); errDelete != nil {
			return errDelete
		}
		var decoded FlowState
		if errDecode := json.Unmarshal(data, &decoded); errDecode != nil {
			return fmt.Errorf("failed to decode flow state: %w", errDecode)
		}
		if time.Since(decoded.CreatedAt) > flowTTL {
			return ErrFlowNotFound
		}
		fs = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func pruneExpired(bucket *bolt.Bucket) {
	cutoff := time.Now().Add(-flowTTL)
	cursor := bucket.Cursor()
	for key, value := cursor.First(); key != nil; key, value = cursor.Next() {
		var decoded FlowState
		if json.Unmarshal(value, &decoded) != nil || decoded.CreatedAt.Before(cutoff) {
			_ = cursor.Delete()
		}
	}
}
