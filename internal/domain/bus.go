package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (standalone) or NATS (cluster).
// Messages are routed by scope + topic. Per-user events use the user id as
// scope; fan-in consumers such as the worker use GlobalScope.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, scope string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, scope string, topic string, handler MessageHandler) (TopicSubscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// GlobalScope is the scope for service-wide topics.
const GlobalScope = "_global"

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Scope     string            `json:"scope"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// TopicSubscription represents an active subscription.
type TopicSubscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `json:"type"`

	// Channel settings
	ChannelBufferSize int `json:"channelBufferSize"`

	// NATS settings
	NATSUrl           string `json:"natsUrl"`
	NATSToken         string `json:"-"`
	NATSMaxReconnects int    `json:"natsMaxReconnects"`
	NATSReconnectWait int    `json:"natsReconnectWait"` // seconds
}

// Topic names for the assessment pipeline.
const (
	TopicRecordIngested      = "heron.record.ingested"
	TopicAssessmentCompleted = "heron.assessment.completed"
	TopicRiskHigh            = "heron.risk.high"
)

// RecordEvent is published when a tracker record is stored.
type RecordEvent struct {
	UserID   string   `json:"userId"`
	Domain   DomainID `json:"domain"`
	RecordID string   `json:"recordId,omitempty"`
}

// AssessmentEvent is published when an assessment completes.
type AssessmentEvent struct {
	AssessmentID  string   `json:"assessmentId"`
	UserID        string   `json:"userId"`
	Domain        DomainID `json:"domain"`
	RiskLevel     RiskTier `json:"riskLevel"`
	Score         int      `json:"score"`
	Factors       []string `json:"factors"`
	UrgentActions []string `json:"urgentActions"`

	PreviousRiskLevel RiskTier `json:"previousRiskLevel,omitempty"`
}
