// Package memory provides an in-process [passAuth.Repository].
package memory

import (
	"context"
	"fmt"
	"sync"

	passAuth "github.com/MrEthical07/passAuth"
)

// Store keeps user records in maps guarded by a RWMutex. The zero value is
// not usable; call [New].
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]passAuth.UserRecord
	byName  map[string]int64
	byToken map[string]int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:    make(map[int64]passAuth.UserRecord),
		byName:  make(map[string]int64),
		byToken: make(map[string]int64),
	}
}

// FindByName implements [passAuth.Repository].
func (s *Store) FindByName(ctx context.Context, name string) (passAuth.UserRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return passAuth.UserRecord{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[name]
	if !ok {
		return passAuth.UserRecord{}, false, nil
	}
	return s.byID[id].Clone(), true, nil
}

// FindByToken implements [passAuth.Repository].
func (s *Store) FindByToken(ctx context.Context, token string) (passAuth.UserRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return passAuth.UserRecord{}, false, err
	}
	if token == "" {
		return passAuth.UserRecord{}, false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[token]
	if !ok {
		return passAuth.UserRecord{}, false, nil
	}
	return s.byID[id].Clone(), true, nil
}

// Create implements [passAuth.Repository]. The record's ID is assigned here.
func (s *Store) Create(ctx context.Context, user passAuth.UserRecord) (passAuth.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return passAuth.UserRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[user.Name]; taken {
		return passAuth.UserRecord{}, fmt.Errorf("memory: create %q: %w", user.Name, passAuth.ErrDuplicateName)
	}

	s.nextID++
	user = user.Clone()
	user.ID = s.nextID
	s.byID[user.ID] = user
	s.byName[user.Name] = user.ID
	if user.Token != "" {
		s.byToken[user.Token] = user.ID
	}
	return user.Clone(), nil
}

// Update implements [passAuth.Repository].
func (s *Store) Update(ctx context.Context, id int64, changes passAuth.UserChanges) (passAuth.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return passAuth.UserRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return passAuth.UserRecord{}, fmt.Errorf("memory: update %d: %w", id, passAuth.ErrRecordNotFound)
	}
	if err := changes.Check(current); err != nil {
		return passAuth.UserRecord{}, fmt.Errorf("memory: update %d: %w", id, err)
	}

	updated := changes.Apply(current)
	if current.Token != updated.Token {
		delete(s.byToken, current.Token)
		if updated.Token != "" {
			s.byToken[updated.Token] = id
		}
	}
	s.byID[id] = updated
	return updated.Clone(), nil
}

// GuestUser implements [passAuth.Repository].
func (s *Store) GuestUser() passAuth.UserRecord {
	return passAuth.Guest()
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
