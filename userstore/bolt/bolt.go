// Package bolt implements authgate.UserStore on an embedded bbolt database.
//
// Users are JSON documents in the "users" bucket keyed by id. Two index
// buckets map username and lower-cased email to id. Every write runs in one
// bbolt Update transaction, and bbolt serializes writers, so the uniqueness
// checks and the insert are atomic.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/MrEthical07/authgate"
)

var (
	usersBucket     = []byte("users")
	usernamesBucket = []byte("usernames")
	emailsBucket    = []byte("emails")
)

// Store implements authgate.UserStore backed by a bbolt database.
type Store struct {
	db *bbolt.DB
}

var _ authgate.UserStore = (*Store)(nil)

type userDoc struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// New returns a Store on db, creating the buckets if needed.
func New(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{usersBucket, usernamesBucket, emailsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Open opens or creates the database file at path and returns a Store.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func emailKey(email string) []byte {
	return []byte(strings.ToLower(email))
}

func (s *Store) Create(_ context.Context, u authgate.User) (authgate.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		names := tx.Bucket(usernamesBucket)
		emails := tx.Bucket(emailsBucket)
		if names.Get([]byte(u.Username)) != nil {
			return authgate.ErrDuplicateUsername
		}
		if emails.Get(emailKey(u.Email)) != nil {
			return authgate.ErrDuplicateEmail
		}

		data, err := json.Marshal(toDoc(u))
		if err != nil {
			return err
		}
		if err := tx.Bucket(usersBucket).Put([]byte(u.ID), data); err != nil {
			return err
		}
		if err := names.Put([]byte(u.Username), []byte(u.ID)); err != nil {
			return err
		}
		return emails.Put(emailKey(u.Email), []byte(u.ID))
	})
	if err != nil {
		return authgate.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) FindByUsername(_ context.Context, username string) (authgate.User, error) {
	var u authgate.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(usernamesBucket).Get([]byte(username))
		if id == nil {
			return authgate.ErrUserNotFound
		}
		var err error
		u, err = getUser(tx, id)
		return err
	})
	if err != nil {
		return authgate.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) FindByID(_ context.Context, id string) (authgate.User, error) {
	var u authgate.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		u, err = getUser(tx, []byte(id))
		return err
	})
	if err != nil {
		return authgate.User{}, mapError(err)
	}
	return u, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return s.update(id, func(u *authgate.User) { u.PasswordHash = hash })
}

// SetRole changes a user's role.
func (s *Store) SetRole(_ context.Context, id, role string) error {
	return s.update(id, func(u *authgate.User) { u.Role = role })
}

func (s *Store) Delete(_ context.Context, id string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		u, err := getUser(tx, []byte(id))
		if err != nil {
			return err
		}
		if err := tx.Bucket(usernamesBucket).Delete([]byte(u.Username)); err != nil {
			return err
		}
		if err := tx.Bucket(emailsBucket).Delete(emailKey(u.Email)); err != nil {
			return err
		}
		return tx.Bucket(usersBucket).Delete([]byte(id))
	})
	return mapError(err)
}

func (s *Store) update(id string, mutate func(*authgate.User)) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		u, err := getUser(tx, []byte(id))
		if err != nil {
			return err
		}
		mutate(&u)
		data, err := json.Marshal(toDoc(u))
		if err != nil {
			return err
		}
		return tx.Bucket(usersBucket).Put([]byte(id), data)
	})
	return mapError(err)
}

func getUser(tx *bbolt.Tx, id []byte) (authgate.User, error) {
	data := tx.Bucket(usersBucket).Get(id)
	if data == nil {
		return authgate.User{}, authgate.ErrUserNotFound
	}
	var doc userDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return authgate.User{}, fmt.Errorf("decoding user %s: %w", id, err)
	}
	return fromDoc(doc), nil
}

// mapError passes the authgate sentinels through and reports anything else
// as ErrUserStoreUnavailable.
func mapError(err error) error {
	switch err {
	case nil, authgate.ErrUserNotFound, authgate.ErrDuplicateUsername, authgate.ErrDuplicateEmail:
		return err
	default:
		return fmt.Errorf("%w: %v", authgate.ErrUserStoreUnavailable, err)
	}
}

func toDoc(u authgate.User) userDoc {
	return userDoc{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
	}
}

func fromDoc(d userDoc) authgate.User {
	return authgate.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		Active:       d.Active,
		CreatedAt:    d.CreatedAt,
	}
}
