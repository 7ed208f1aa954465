package events

import (
	"context"
	"encoding/json"
	"fmt"

	"gomuni/internal/domain"
	"gomuni/internal/pkg/cache"
	"gomuni/internal/pkg/logger"
)

// Publisher define o contrato de emissão das intenções de notificação do fluxo
// de intercâmbio. A entrega em si (email, SMS, mensagem transiente na UI) é
// responsabilidade dos consumidores do canal, nunca do núcleo.
type Publisher interface {
	Publish(ctx context.Context, event domain.ExchangeEvent) error
}

// RedisPublisher publica os eventos como JSON em um canal pub/sub do Redis,
// reutilizando o mesmo cliente do cache.
type RedisPublisher struct {
	client  cache.Client
	channel string
	logger  logger.Logger
}

// NewRedisPublisher cria uma nova instância do publicador de eventos.
func NewRedisPublisher(client cache.Client, channel string, log logger.Logger) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  log,
	}
}

// Publish serializa o evento e o envia ao canal configurado.
func (p *RedisPublisher) Publish(ctx context.Context, event domain.ExchangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("falha ao serializar evento %s: %w", event.Type, err)
	}

	if err := p.client.Publish(ctx, p.channel, string(payload)); err != nil {
		return fmt.Errorf("falha ao publicar evento %s: %w", event.Type, err)
	}

	p.logger.Debug("Evento de intercâmbio publicado.", map[string]interface{}{
		"type":       string(event.Type),
		"request_id": event.RequestID,
		"channel":    p.channel,
	})
	return nil
}
