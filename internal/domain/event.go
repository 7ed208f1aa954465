package domain

import "time"

// EventType é um tipo string para as intenções de notificação emitidas pelo fluxo.
type EventType string

const (
	EventRequestSubmitted EventType = "request_submitted"
	EventRequestApproved  EventType = "request_approved"
	EventRequestRejected  EventType = "request_rejected"
)

// ExchangeEvent é a intenção de notificar emitida após cada operação do fluxo.
// O núcleo emite apenas a intenção; a entrega (email, SMS, UI transiente) é
// responsabilidade dos consumidores.
type ExchangeEvent struct {
	Type                   EventType `json:"type"`
	RequestID              string    `json:"request_id"`
	ResourceID             string    `json:"resource_id"`
	RequestingMunicipality string    `json:"requesting_municipality"`
	OwnerMunicipality      string    `json:"owner_municipality"`
	Quantity               int       `json:"quantity"`
	OccurredAt             time.Time `json:"occurred_at"`
}
