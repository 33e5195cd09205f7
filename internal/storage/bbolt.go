package storage

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
)

// FileName is the state database name inside the vault directory.
const FileName = "state.db"

// LockTimeout bounds how long Open waits for another session to finish.
const LockTimeout = time.Second

// Bucket names
var (
	MetaBucket     = []byte("meta")     // vault ID, timestamps, last seal summary
	SessionsBucket = []byte("sessions") // session journal, JSON per entry
)

// Meta keys
var (
	MetaVersion       = []byte("version")
	MetaCreated       = []byte("created")
	MetaVaultID       = []byte("vault_id")
	MetaLastSealed    = []byte("last_sealed")
	MetaSealedRecords = []byte("sealed_records")
	MetaLastState     = []byte("last_state")
)

var (
	ErrVaultBusy      = errors.New("vault is in use by another session")
	ErrNotInitialized = errors.New("state database not initialized")
)

// Storage provides BBolt-based storage for vault state
type Storage struct {
	db       *bolt.DB
	readOnly bool
}

// Open opens or creates the state database with an exclusive lock.
func Open(path string) (*Storage, error) {
	return open(path, false)
}

// OpenReadOnly opens an existing state database with a shared lock.
func OpenReadOnly(path string) (*Storage, error) {
	return open(path, true)
}

func open(path string, readOnly bool) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: LockTimeout, ReadOnly: readOnly})
	if err != nil {
		if errors.Is(err, berrors.ErrTimeout) {
			return nil, ErrVaultBusy
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db, readOnly: readOnly}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure and vault ID if missing. It is
// safe to call on every exclusive open.
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{MetaBucket, SessionsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		meta := tx.Bucket(MetaBucket)
		if meta.Get(MetaVersion) != nil {
			return nil
		}

		if err := meta.Put(MetaVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := meta.Put(MetaCreated, created); err != nil {
			return err
		}

		b := make([]byte, 16)
		if _, err := rand.Read(b); err != nil {
			return fmt.Errorf("failed to generate vault ID: %w", err)
		}
		return meta.Put(MetaVaultID, []byte(hex.EncodeToString(b)))
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(MetaBucket)
		if meta != nil && meta.Get(MetaVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// Meta is the non-secret summary of a vault.
type Meta struct {
	VaultID       string
	Created       time.Time
	LastSealed    time.Time
	SealedRecords int
	LastState     string
}

// Meta reads the meta bucket.
func (s *Storage) Meta() (*Meta, error) {
	m := &Meta{}
	err := s.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(MetaBucket)
		if meta == nil || meta.Get(MetaVersion) == nil {
			return ErrNotInitialized
		}

		m.VaultID = string(meta.Get(MetaVaultID))
		m.LastState = string(meta.Get(MetaLastState))

		if data := meta.Get(MetaCreated); data != nil {
			if err := m.Created.UnmarshalBinary(data); err != nil {
				return fmt.Errorf("corrupt created time: %w", err)
			}
		}
		if data := meta.Get(MetaLastSealed); data != nil {
			if err := m.LastSealed.UnmarshalBinary(data); err != nil {
				return fmt.Errorf("corrupt last sealed time: %w", err)
			}
		}
		if data := meta.Get(MetaSealedRecords); len(data) == 8 {
			m.SealedRecords = int(binary.BigEndian.Uint64(data))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// VaultID returns the random identifier used to key the OS keyring.
func (s *Storage) VaultID() (string, error) {
	m, err := s.Meta()
	if err != nil {
		return "", err
	}
	if m.VaultID == "" {
		return "", fmt.Errorf("vault_id not found")
	}
	return m.VaultID, nil
}

// RecordSeal stores the time and record count of a successful seal.
func (s *Storage) RecordSeal(at time.Time, records int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(MetaBucket)
		if meta == nil {
			return ErrNotInitialized
		}

		sealed, _ := at.MarshalBinary()
		if err := meta.Put(MetaLastSealed, sealed); err != nil {
			return err
		}
		return meta.Put(MetaSealedRecords, binary.BigEndian.AppendUint64(nil, uint64(records)))
	})
}

// SetLastState stores the state a session ended in.
func (s *Storage) SetLastState(state string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		meta := tx.Bucket(MetaBucket)
		if meta == nil {
			return ErrNotInitialized
		}
		return meta.Put(MetaLastState, []byte(state))
	})
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after pruning the session journal.
func (s *Storage) Compact() error {
	if s.readOnly {
		return fmt.Errorf("cannot compact a read-only database")
	}

	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				if err := dstBucket.SetSequence(srcBucket.Sequence()); err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: LockTimeout})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}

func itob(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func formatID(v uint64) string {
	return strconv.FormatUint(v, 10)
}
