package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// SessionEntry is one line of the session journal.
type SessionEntry struct {
	ID         uint64    `json:"id"`
	Started    time.Time `json:"started"`
	Ended      time.Time `json:"ended"`
	State      string    `json:"state"`
	Sealed     bool      `json:"sealed"`
	Diagnostic string    `json:"diagnostic"`
	Appended   int       `json:"appended"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// Label returns a short identifier for display.
func (e SessionEntry) Label() string {
	return "#" + formatID(e.ID)
}

// AppendSession stores entry under the next sequence number and returns it.
func (s *Storage) AppendSession(entry SessionEntry) (uint64, error) {
	var id uint64
	err := s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(SessionsBucket)
		if sessions == nil {
			return ErrNotInitialized
		}

		seq, err := sessions.NextSequence()
		if err != nil {
			return err
		}
		entry.ID = seq

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		id = seq
		return sessions.Put(itob(seq), data)
	})
	return id, err
}

// Sessions returns the journal, oldest first.
func (s *Storage) Sessions() ([]SessionEntry, error) {
	var entries []SessionEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(SessionsBucket)
		if sessions == nil {
			return nil
		}
		return sessions.ForEach(func(k, v []byte) error {
			var entry SessionEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("corrupt session entry %d: %w", binary.BigEndian.Uint64(k), err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

// PruneSessions keeps the newest keep entries and returns how many were
// deleted.
func (s *Storage) PruneSessions(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	var deleted int
	err := s.db.Update(func(tx *bolt.Tx) error {
		sessions := tx.Bucket(SessionsBucket)
		if sessions == nil {
			return nil
		}

		excess := sessions.Stats().KeyN - keep
		if excess <= 0 {
			return nil
		}

		var keys [][]byte
		c := sessions.Cursor()
		for k, _ := c.First(); k != nil && len(keys) < excess; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}

		for _, k := range keys {
			if err := sessions.Delete(k); err != nil {
				return err
			}
		}
		deleted = len(keys)
		return nil
	})
	return deleted, err
}
