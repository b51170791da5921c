// Package crlstore archives accepted CRLs in a bbolt database, keyed by
// CRL number.
package crlstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.etcd.io/bbolt"
)

// keyWidth fits the largest CRL number allowed by RFC 5280 (20 octets)
// as fixed-width hex, so byte order matches numeric order.
const keyWidth = 40

var bucketName = []byte("crls")

var (
	// ErrNotFound is returned when no CRL matches.
	ErrNotFound = errors.New("crl not found")

	// ErrOutdated is returned by PutIfNewer when the CRL number does not
	// exceed the latest stored one.
	ErrOutdated = errors.New("crl is outdated")

	// ErrInvalidNumber is returned for negative or oversized CRL numbers.
	ErrInvalidNumber = errors.New("invalid crl number")
)

// Record is one archived CRL.
type Record struct {
	Number     *big.Int  `json:"-"`
	PEM        string    `json:"pem"`
	ReceivedAt time.Time `json:"received_at"`
}

// Store implements the CRL archive backed by a BBolt database.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// New returns a Store backed by db.
func New(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Open opens the BBolt database at path and returns a Store.
func Open(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(number *big.Int) ([]byte, error) {
	if number == nil || number.Sign() < 0 || number.BitLen() > keyWidth*4 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNumber, number)
	}
	return []byte(fmt.Sprintf("%0*x", keyWidth, number)), nil
}

func decode(k, v []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(v, &rec); err != nil {
		return nil, fmt.Errorf("decoding crl %s: %w", k, err)
	}
	n, ok := new(big.Int).SetString(string(k), 16)
	if !ok {
		return nil, fmt.Errorf("decoding crl key %q", k)
	}
	rec.Number = n
	return &rec, nil
}

func (s *Store) put(b *bbolt.Bucket, k []byte, pem string) error {
	data, err := json.Marshal(Record{PEM: pem, ReceivedAt: s.now().UTC()})
	if err != nil {
		return err
	}
	return b.Put(k, data)
}

// Put stores pem under number, replacing any CRL with the same number.
func (s *Store) Put(number *big.Int, pem string) error {
	k, err := key(number)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return s.put(tx.Bucket(bucketName), k, pem)
	})
}

// PutIfNewer stores pem only when number exceeds every stored CRL
// number. The check and the write share one transaction.
func (s *Store) PutIfNewer(number *big.Int, pem string) error {
	k, err := key(number)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		if last, _ := b.Cursor().Last(); last != nil && string(last) >= string(k) {
			return fmt.Errorf("%w: %s is not newer than %s", ErrOutdated, number, trim(last))
		}
		return s.put(b, k, pem)
	})
}

// Delete removes the CRL stored under number. Deleting a missing number
// is not an error.
func (s *Store) Delete(number *big.Int) error {
	k, err := key(number)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete(k)
	})
}

// Get returns the CRL stored under number.
func (s *Store) Get(number *big.Int) (*Record, error) {
	k, err := key(number)
	if err != nil {
		return nil, err
	}
	var rec *Record
	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get(k)
		if v == nil {
			return fmt.Errorf("%s: %w", number, ErrNotFound)
		}
		var derr error
		rec, derr = decode(k, v)
		return derr
	})
	return rec, err
}

// Latest returns the CRL with the highest number.
func (s *Store) Latest() (*Record, error) {
	var rec *Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		k, v := tx.Bucket(bucketName).Cursor().Last()
		if k == nil {
			return ErrNotFound
		}
		var err error
		rec, err = decode(k, v)
		return err
	})
	return rec, err
}

// List returns the stored CRL numbers in ascending order.
func (s *Store) List() ([]*big.Int, error) {
	var numbers []*big.Int
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).ForEach(func(k, _ []byte) error {
			n, ok := new(big.Int).SetString(string(k), 16)
			if !ok {
				return fmt.Errorf("decoding crl key %q", k)
			}
			numbers = append(numbers, n)
			return nil
		})
	})
	return numbers, err
}

func trim(k []byte) string {
	n, ok := new(big.Int).SetString(string(k), 16)
	if !ok {
		return string(k)
	}
	return n.String()
}
