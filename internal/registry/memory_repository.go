package registry

import (
	"context"
	"sync"
	"time"

	"github.com/nomad-pass/nomad_pass/internal/events"
)

type memoryRepository struct {
	mu      sync.RWMutex
	tokens  map[int64]Token
	byOwner map[string]int64
	nextID  int64
	roles   map[string]map[Role]bool
	log     []events.Event
}

// NewMemoryRepository builds an in-memory registry store for tests and
// development mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		tokens:  make(map[int64]Token),
		byOwner: make(map[string]int64),
		roles:   make(map[string]map[Role]bool),
	}
}

func (r *memoryRepository) append(ev events.Event) events.Event {
	ev.Seq = int64(len(r.log)) + 1
	r.log = append(r.log, ev)
	return ev
}

func (r *memoryRepository) Mint(_ context.Context, token Token) (Token, events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOwner[token.Owner]; exists {
		return Token{}, events.Event{}, ErrDuplicateIdentity
	}

	token.ID = r.nextID
	r.nextID++
	r.tokens[token.ID] = token
	r.byOwner[token.Owner] = token.ID

	ev := r.append(events.Minted(token.ID, token.Owner, token.ProfileHash, token.ReputationScore))
	return token, ev, nil
}

func (r *memoryRepository) UpdateReputation(_ context.Context, tokenID int64, newScore int32) (Token, events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenID]
	if !ok {
		return Token{}, events.Event{}, ErrTokenNotFound
	}
	if !token.Active {
		return Token{}, events.Event{}, ErrTokenRevoked
	}

	old := token.ReputationScore
	token.ReputationScore = newScore
	r.tokens[tokenID] = token

	ev := r.append(events.ReputationUpdated(tokenID, token.Owner, old, newScore))
	return token, ev, nil
}

func (r *memoryRepository) UpdateProfileHash(_ context.Context, tokenID int64, newHash string) (Token, events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenID]
	if !ok {
		return Token{}, events.Event{}, ErrTokenNotFound
	}
	if !token.Active {
		return Token{}, events.Event{}, ErrTokenRevoked
	}

	token.ProfileHash = newHash
	r.tokens[tokenID] = token

	ev := r.append(events.ProfileHashUpdated(tokenID, token.Owner, newHash))
	return token, ev, nil
}

func (r *memoryRepository) Revoke(_ context.Context, tokenID int64) (Token, events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenID]
	if !ok {
		return Token{}, events.Event{}, ErrTokenNotFound
	}
	if !token.Active {
		return Token{}, events.Event{}, ErrAlreadyRevoked
	}

	now := time.Now().UTC()
	token.Active = false
	token.RevokedAt = &now
	r.tokens[tokenID] = token

	ev := r.append(events.Revoked(tokenID, token.Owner))
	return token, ev, nil
}

func (r *memoryRepository) Get(_ context.Context, tokenID int64) (Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[tokenID]
	if !ok {
		return Token{}, ErrTokenNotFound
	}
	return token, nil
}

func (r *memoryRepository) GetByOwner(_ context.Context, owner string) (Token, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tokenID, ok := r.byOwner[owner]
	if !ok {
		return Token{}, false, nil
	}
	return r.tokens[tokenID], true, nil
}

func (r *memoryRepository) TotalSupply(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID, nil
}

func (r *memoryRepository) GrantRole(_ context.Context, address string, role Role) (bool, events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	held := r.roles[address]
	if held == nil {
		held = make(map[Role]bool)
		r.roles[address] = held
	}
	if held[role] {
		return false, events.Event{}, nil
	}
	held[role] = true

	ev := r.append(events.RoleGranted(address, string(role)))
	return true, ev, nil
}

func (r *memoryRepository) RevokeRole(_ context.Context, address string, role Role) (bool, events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	held := r.roles[address]
	if held == nil || !held[role] {
		return false, events.Event{}, nil
	}
	delete(held, role)

	ev := r.append(events.RoleRevoked(address, string(role)))
	return true, ev, nil
}

func (r *memoryRepository) RolesOf(_ context.Context, address string) ([]Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var roles []Role
	for _, role := range []Role{RoleAdmin, RoleMinter} {
		if r.roles[address][role] {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (r *memoryRepository) Events(_ context.Context, afterSeq int64, limit int) ([]events.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var log []events.Event
	for _, ev := range r.log {
		if ev.Seq <= afterSeq {
			continue
		}
		log = append(log, ev)
		if len(log) == limit {
			break
		}
	}
	return log, nil
}
