// Package session turns bearer tokens into actors and ends sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"raices-verdes/internal/domain"
	sessionrepo "raices-verdes/internal/repository/session"
)

type producerReader interface {
	GetByID(ctx context.Context, id string) (*domain.Producer, error)
}

type clientReader interface {
	GetByID(ctx context.Context, id string) (*domain.Client, error)
}

type revocations interface {
	Revoke(ctx context.Context, r sessionrepo.Revocation) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type publisher interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
}

type Service struct {
	secret    []byte
	producers producerReader
	clients   clientReader
	revoked   revocations
	events    publisher
	logger    zerolog.Logger
	now       func() time.Time
}

func New(secret string, producers producerReader, clients clientReader, revoked revocations, events publisher, logger *zerolog.Logger) *Service {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "session").Logger()
	}
	return &Service{
		secret:    []byte(secret),
		producers: producers,
		clients:   clients,
		revoked:   revoked,
		events:    events,
		logger:    l,
		now:       time.Now,
	}
}

// Resolve maps an Authorization header value (or a bare token) to an actor.
// Missing or invalid tokens are anonymous with a nil error. When a store
// lookup fails the actor is RoleUnknown and the error wraps ErrUnknownActor.
func (s *Service) Resolve(ctx context.Context, bearer string) (domain.Actor, error) {
	raw := stripBearer(bearer)
	if raw == "" {
		return domain.Anonymous(), nil
	}

	claims, err := parse(s.secret, raw, s.now)
	if err != nil {
		s.logger.Debug().Err(err).Msg("rejecting session token")
		return domain.Anonymous(), nil
	}

	if claims.ID != "" && s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return unknown(err)
		}
		if revoked {
			return domain.Anonymous(), nil
		}
	}

	actor := domain.Actor{
		Role:    domain.RoleAnonymous,
		ID:      claims.Subject,
		Email:   claims.Email,
		Name:    claims.UserMetadata.Name,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		actor.ExpiresAt = claims.ExpiresAt.Time
	}

	producer, err := s.producers.GetByID(ctx, actor.ID)
	switch {
	case err == nil:
		actor.Role = domain.RoleProducer
		actor.Producer = producer
		if actor.Name == "" {
			actor.Name = producer.BusinessName
		}
		return actor, nil
	case !errors.Is(err, domain.ErrNotFound):
		return unknown(err)
	}

	client, err := s.clients.GetByID(ctx, actor.ID)
	switch {
	case err == nil:
		actor.Role = domain.RoleClient
		if client.Name != "" {
			actor.Name = client.Name
		}
		if actor.Email == "" {
			actor.Email = client.Email
		}
	case !errors.Is(err, domain.ErrNotFound):
		return unknown(err)
	}
	// a session without any profile stays anonymous but keeps its identity
	return actor, nil
}

// SignOut revokes the actor's token until it expires and tells live cart
// streams of that identity to stop.
func (s *Service) SignOut(ctx context.Context, actor domain.Actor) error {
	if !actor.HasSession() {
		return domain.ErrAuthRequired
	}
	if actor.TokenID != "" && s.revoked != nil {
		expires := actor.ExpiresAt
		if expires.IsZero() {
			expires = s.now().Add(24 * time.Hour)
		}
		if err := s.revoked.Revoke(ctx, sessionrepo.Revocation{
			TokenID:    actor.TokenID,
			IdentityID: actor.ID,
			ExpiresAt:  expires,
		}); err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
	}

	if s.events != nil {
		ev := domain.ChangeEvent{
			Collection: domain.CollectionCartLines,
			Kind:       domain.ChangeSignOut,
			Key:        actor.ID,
			At:         s.now(),
		}
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("client_id", actor.ID).Msg("publish signout")
		}
	}
	s.logger.Info().Str("client_id", actor.ID).Msg("signed out")
	return nil
}

func unknown(err error) (domain.Actor, error) {
	return domain.Actor{Role: domain.RoleUnknown}, fmt.Errorf("%w: %v", domain.ErrUnknownActor, err)
}

func stripBearer(header string) string {
	h := strings.TrimSpace(header)
	if len(h) >= 7 && strings.EqualFold(h[:7], "bearer ") {
		h = h[7:]
	}
	return strings.TrimSpace(h)
}
