package reconcile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	kafkax "github.com/ariefcatur/inventory-dashboard/internal/kafka"
	"github.com/ariefcatur/inventory-dashboard/internal/logger"
	"github.com/ariefcatur/inventory-dashboard/internal/orders"
	"github.com/ariefcatur/inventory-dashboard/internal/redisx"
)

// Store is implemented by *Repo.
type Store interface {
	Save(ctx context.Context, c Case) (bool, error)
	List(ctx context.Context, status Status) ([]Case, error)
	Resolve(ctx context.Context, id, by string) (Case, error)
}

type Service struct {
	Store       Store
	Redis       redis.Cmdable
	ServiceName string
	Log         logger.Logger
}

// HandleReconciliation is installed as the consumer handler for
// orders.TopicReconciliation.
func (s *Service) HandleReconciliation(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.log().Warn("dropping undecodable message", logger.Int64("offset", m.Offset), logger.Error(err))
		return nil
	}
	if env.EventType != orders.EventReconciliationRequired {
		return nil
	}
	log := s.log().WithContext(logger.ContextWithRequestID(ctx, env.TraceID)).
		WithFields(logger.String("event_id", env.EventID))

	// 2) dedup via Redis; Postgres' unique event_id is the backstop
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if seen, err := redisx.Exists(ctx, s.Redis, dkey); err == nil && seen {
		log.Debug("duplicate event skipped")
		return nil
	}

	// 3) decode payload
	p, err := kafkax.UnwrapPayload[orders.ReconciliationRequiredPayload](env.Payload)
	if err != nil {
		log.Warn("dropping event with bad payload", logger.Error(err))
		return nil
	}
	total, err := decimal.NewFromString(p.Total)
	if err != nil {
		log.Warn("dropping event with bad total", logger.String("total", p.Total))
		return nil
	}

	// 4) record the case
	created, err := s.Store.Save(ctx, Case{
		EventID:       env.EventID,
		ItemID:        p.ItemID,
		CustomerID:    p.CustomerID,
		Quantity:      p.Quantity,
		Total:         total,
		OrderDate:     p.OrderDate,
		Reason:        p.Reason,
		BackendStatus: p.BackendStatus,
		SubmittedBy:   p.SubmittedBy,
		CreatedAt:     env.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("save reconciliation case: %w", err)
	}
	if _, err := redisx.MarkOnce(ctx, s.Redis, dkey, redisx.TTLDedup); err != nil {
		log.Warn("dedup mark failed", logger.Error(err))
	}
	if created {
		log.Warn("reconciliation case opened",
			logger.String("item_id", p.ItemID),
			logger.Int("quantity", p.Quantity),
			logger.String("reason", p.Reason),
		)
	}
	return nil
}

func (s *Service) Open(ctx context.Context) ([]Case, error) {
	return s.Store.List(ctx, StatusOpen)
}

func (s *Service) All(ctx context.Context) ([]Case, error) {
	return s.Store.List(ctx, "")
}

func (s *Service) Resolve(ctx context.Context, id, by string) (Case, error) {
	c, err := s.Store.Resolve(ctx, id, by)
	if err != nil {
		return Case{}, err
	}
	s.log().Info("reconciliation case resolved", logger.String("case_id", id), logger.String("resolved_by", by))
	return c, nil
}

func (s *Service) log() logger.Logger {
	if s.Log == nil {
		return logger.Nop()
	}
	return s.Log
}
