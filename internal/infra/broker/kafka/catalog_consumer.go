package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/IBM/sarama"

	"roomly/internal/domain/catalog"
)

// CatalogInvalidator is the piece of cache that reacts to catalog changes.
type CatalogInvalidator interface {
	Invalidate(ctx context.Context, tenant catalog.TenantID) error
}

// CatalogConsumer listens for catalog-change notifications from the external
// catalog-management service and drops the affected tenant's cached entries.
type CatalogConsumer struct {
	group  sarama.ConsumerGroup
	topic  string
	cache  CatalogInvalidator
	logger *slog.Logger
}

func NewCatalogConsumer(brokers []string, groupID, topic string, cache CatalogInvalidator, logger *slog.Logger) (*CatalogConsumer, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &CatalogConsumer{group: group, topic: topic, cache: cache, logger: logger}, nil
}

func (c *CatalogConsumer) Run(ctx context.Context) error {
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, catalogHandler{cache: c.cache, logger: c.logger}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *CatalogConsumer) Close() error {
	return c.group.Close()
}

type catalogChange struct {
	TenantID string `json:"tenant_id"`
}

type catalogHandler struct {
	cache  CatalogInvalidator
	logger *slog.Logger
}

func (h catalogHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h catalogHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h catalogHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var change catalogChange
		if err := json.Unmarshal(message.Value, &change); err != nil || change.TenantID == "" {
			// Malformed notification; skip rather than stall the partition.
			sess.MarkMessage(message, "")
			continue
		}
		if err := h.cache.Invalidate(sess.Context(), catalog.TenantID(change.TenantID)); err != nil {
			if h.logger != nil {
				h.logger.Error("catalog cache invalidation failed", "tenant", change.TenantID, "error", err)
			}
			continue
		}
		sess.MarkMessage(message, "")
	}
	return nil
}
