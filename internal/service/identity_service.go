package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"marketchat/internal/cache"
	"marketchat/internal/domain"
)

const lookupTimeout = 5 * time.Second

// IdentityService resolves user ids to display identities. Lookups go
// through an optional cache, and concurrent misses for the same id share a
// single repository read.
type IdentityService struct {
	users  domain.UserRepository
	cache  cache.Cache
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewIdentityService builds the lookup. c may be nil to disable caching.
func NewIdentityService(users domain.UserRepository, c cache.Cache, ttl time.Duration, logger *slog.Logger) *IdentityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityService{users: users, cache: c, ttl: ttl, logger: logger}
}

func identityKey(id int64) string {
	return "identity:" + strconv.FormatInt(id, 10)
}

// Lookup returns the identity for id or domain.ErrNotFound.
func (s *IdentityService) Lookup(ctx context.Context, id int64) (*domain.Identity, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, identityKey(id)); err == nil {
			var ident domain.Identity
			if err := json.Unmarshal([]byte(raw), &ident); err == nil {
				return &ident, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("identity cache read failed", "user_id", id, "error", err)
		}
	}

	v, err, _ := s.group.Do(identityKey(id), func() (any, error) {
		// shared by every waiter, so one caller going away must not fail the rest
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get user %d: %w", id, err)
		}
		if u == nil {
			return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
		ident := u.Identity()
		s.store(ctx, ident)
		return ident, nil
	})
	if err != nil {
		return nil, err
	}
	ident := *v.(*domain.Identity)
	return &ident, nil
}

// Resolve is Lookup that never fails: unknown or unreadable users come back
// as a bare identity carrying only the id.
func (s *IdentityService) Resolve(ctx context.Context, id int64) *domain.Identity {
	ident, err := s.Lookup(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("identity lookup failed", "user_id", id, "error", err)
		}
		return &domain.Identity{ID: id}
	}
	return ident
}

// Invalidate drops a cached identity after the user changes.
func (s *IdentityService) Invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Del(ctx, identityKey(id)); err != nil {
		s.logger.Warn("identity cache delete failed", "user_id", id, "error", err)
	}
}

func (s *IdentityService) store(ctx context.Context, ident *domain.Identity) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(ident)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, identityKey(ident.ID), string(raw), s.ttl); err != nil {
		s.logger.Warn("identity cache write failed", "user_id", ident.ID, "error", err)
	}
}
