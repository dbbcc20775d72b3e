// Package hookconfig owns the locally cached webhook configuration. The
// config collaborator stays authoritative; the cache refills when empty and
// replaces itself on an explicit change notification, signalling the mirror
// only when the set actually changed.
package hookconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/guildworks/engagements/internal/diff"
	"github.com/guildworks/engagements/internal/domain"
	"github.com/guildworks/engagements/internal/event"
)

type hookRepo interface {
	List(ctx context.Context) ([]domain.HookConfig, error)
	ReplaceAll(ctx context.Context, configs []domain.HookConfig) error
}

type configClient interface {
	Webhooks(ctx context.Context) ([]domain.HookConfig, error)
	RuntimeDocument(ctx context.Context, engagementType string) (json.RawMessage, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type publisher interface {
	Publish(kind event.Kind, payload any)
}

// Service provides the cached webhook configuration and the runtime-config
// passthrough.
type Service struct {
	repo   hookRepo
	client configClient
	tx     txManager
	bus    publisher
	log    *slog.Logger
}

// NewService creates the hook configuration service.
func NewService(log *slog.Logger, repo hookRepo, client configClient, tx txManager, bus publisher) *Service {
	return &Service{
		repo:   repo,
		client: client,
		tx:     tx,
		bus:    bus,
		log:    log.With("service", "hookconfig"),
	}
}

// Get returns the webhook configuration, refilling the cache from the
// collaborator when it is empty.
func (s *Service) Get(ctx context.Context) ([]domain.HookConfig, error) {
	cached, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cached webhooks: %w", err)
	}
	if len(cached) > 0 {
		return cached, nil
	}

	fetched, err := s.client.Webhooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch webhooks: %w", err)
	}
	if len(fetched) == 0 {
		return []domain.HookConfig{}, nil
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.repo.ReplaceAll(txCtx, fetched)
	})
	if err != nil {
		return nil, fmt.Errorf("fill webhook cache: %w", err)
	}

	s.log.InfoContext(ctx, "webhook cache filled", slog.Int("webhooks", len(fetched)))
	return fetched, nil
}

// Refresh re-reads the webhook configuration from the collaborator and
// replaces the cache when something changed. Returns whether a change was
// applied; only a real change signals the mirror to rewire project hooks.
func (s *Service) Refresh(ctx context.Context) (bool, error) {
	fetched, err := s.client.Webhooks(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch webhooks: %w", err)
	}

	cached, err := s.repo.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list cached webhooks: %w", err)
	}

	if !diff.CompareHookConfigs(cached, fetched) {
		return false, nil
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.repo.ReplaceAll(txCtx, fetched)
	})
	if err != nil {
		return false, fmt.Errorf("replace webhook cache: %w", err)
	}

	s.bus.Publish(event.KindWebhooksRefresh, fetched)

	s.log.InfoContext(ctx, "webhook cache replaced", slog.Int("webhooks", len(fetched)))
	return true, nil
}

// RuntimeDocument returns the per-engagement-type runtime configuration
// blob from the collaborator.
func (s *Service) RuntimeDocument(ctx context.Context, engagementType string) (json.RawMessage, error) {
	return s.client.RuntimeDocument(ctx, engagementType)
}
