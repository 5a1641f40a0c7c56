package journal

import (
	"context"

	"codeberg.org/mutker/mongeu/internal/errors"
	"codeberg.org/mutker/mongeu/internal/logger"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopJournal struct{}

func NewService(cfg Config, log logger.Logger) (Journal, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Campaign journal disabled, using no-op journal")
		return &noopJournal{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create journal repository")
		return nil, err
	}

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, event *Event) error {
	errFactory := errors.New()

	if event == nil || !event.Kind.IsValid() {
		return errFactory.New(ErrInvalidEvent)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		return s.repo.Record(event)
	}
}

func (s *service) events(ctx context.Context, campaign uint32) ([]Event, error) {
	return s.repo.events(ctx, campaign)
}

func (s *service) Close() error {
	return s.repo.Close()
}

func (*noopJournal) Record(_ context.Context, _ *Event) error {
	return nil
}

func (*noopJournal) events(_ context.Context, _ uint32) ([]Event, error) {
	return nil, nil
}

func (*noopJournal) Close() error {
	return nil
}
