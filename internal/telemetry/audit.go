package telemetry

import (
	"context"
	"log"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter publishes project-scoped audit events through the
// configured publisher. A nil emitter is usable and emits nothing.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	Subject       string       `json:"subject,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

// AuditPayload carries the event detail. ProjectID is set for events
// scoped to one project's chat room.
type AuditPayload struct {
	Level     string `json:"level"`
	Text      string `json:"text"`
	ProjectID string `json:"project_id,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes one audit event. subject is the external identity of
// the acting user, empty when unauthenticated.
func (e *AuditEmitter) Emit(ctx context.Context, level, text, requestID, projectID, subject string) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		Subject:       subject,
		Payload: AuditPayload{
			Level:     level,
			Text:      text,
			ProjectID: projectID,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
