package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oleg-sazonov/auth-verification-service/internal/core/domain"
	"github.com/oleg-sazonov/auth-verification-service/internal/infra/config"
)

const schemaVersion = "1.0"

// Topic names for the account lifecycle stream. A downstream mail worker
// consumes the registered and reset_requested topics to send email.
const (
	TopicAccountRegistered      = "auth.account.registered"
	TopicAccountVerified        = "auth.account.verified"
	TopicPasswordResetRequested = "auth.password.reset_requested"
	TopicPasswordResetCompleted = "auth.password.reset_completed"
)

// EventPublisher implements port.EventPublisher on top of Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppConfig
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppConfig, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	AccountID string            `json:"account_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, topic, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:   eventID,
		EventType: topic,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Environment,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(accountID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountRegistered publishes auth.account.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		AccountID        string         `json:"account_id"`
		Email            string         `json:"email"`
		DisplayName      string         `json:"display_name"`
		VerificationCode string         `json:"verification_code"`
		CodeExpiresAt    time.Time      `json:"code_expires_at"`
		RegisteredAt     time.Time      `json:"registered_at"`
		MailTemplate     string         `json:"mail_template"`
		Metadata         map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:        event.AccountID,
		Email:            event.Email,
		DisplayName:      event.DisplayName,
		VerificationCode: event.VerificationCode,
		CodeExpiresAt:    event.CodeExpiresAt.UTC(),
		RegisteredAt:     event.RegisteredAt.UTC(),
		MailTemplate:     domain.MailTemplateVerification,
		Metadata:         event.Metadata,
	}

	return p.publish(ctx, event.EventID, TopicAccountRegistered, event.AccountID, event.RegisteredAt, payload)
}

// PublishEmailVerified publishes auth.account.verified events.
func (p *EventPublisher) PublishEmailVerified(ctx context.Context, event domain.EmailVerifiedEvent) error {
	payload := struct {
		AccountID    string         `json:"account_id"`
		Email        string         `json:"email"`
		DisplayName  string         `json:"display_name"`
		VerifiedAt   time.Time      `json:"verified_at"`
		MailTemplate string         `json:"mail_template"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:    event.AccountID,
		Email:        event.Email,
		DisplayName:  event.DisplayName,
		VerifiedAt:   event.VerifiedAt.UTC(),
		MailTemplate: domain.MailTemplateWelcome,
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, TopicAccountVerified, event.AccountID, event.VerifiedAt, payload)
}

// PublishPasswordResetRequested publishes auth.password.reset_requested events.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		AccountID    string         `json:"account_id"`
		Email        string         `json:"email"`
		ResetToken   string         `json:"reset_token"`
		ExpiresAt    time.Time      `json:"expires_at"`
		RequestedAt  time.Time      `json:"requested_at"`
		IPAddress    *string        `json:"ip_address,omitempty"`
		MailTemplate string         `json:"mail_template"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:    event.AccountID,
		Email:        event.Email,
		ResetToken:   event.ResetToken,
		ExpiresAt:    event.ExpiresAt.UTC(),
		RequestedAt:  event.RequestedAt.UTC(),
		IPAddress:    event.IPAddress,
		MailTemplate: domain.MailTemplatePasswordReset,
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, TopicPasswordResetRequested, event.AccountID, event.RequestedAt, payload)
}

// PublishPasswordResetCompleted publishes auth.password.reset_completed events.
func (p *EventPublisher) PublishPasswordResetCompleted(ctx context.Context, event domain.PasswordResetCompletedEvent) error {
	payload := struct {
		AccountID    string         `json:"account_id"`
		Email        string         `json:"email"`
		CompletedAt  time.Time      `json:"completed_at"`
		MailTemplate string         `json:"mail_template"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:    event.AccountID,
		Email:        event.Email,
		CompletedAt:  event.CompletedAt.UTC(),
		MailTemplate: domain.MailTemplateResetConfirmation,
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, TopicPasswordResetCompleted, event.AccountID, event.CompletedAt, payload)
}
