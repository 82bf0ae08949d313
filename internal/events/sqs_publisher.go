package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// Publisher emits canonical events.
type Publisher interface {
	Publish(ctx context.Context, aggregate, correlationID string, evt CanonicalEvent) (Envelope, error)
}

// SQSAPI is the subset of the SQS client used by SQSPublisher.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends envelopes as JSON message bodies.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
	logger   *logging.Logger
}

// NewSQSPublisher creates a publisher for queueURL.
func NewSQSPublisher(client SQSAPI, queueURL string, logger *logging.Logger) *SQSPublisher {
	if client == nil {
		panic("events: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("events: SQS queueURL cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SQSPublisher{client: client, queueURL: queueURL, logger: logger}
}

// Publish wraps evt in an envelope and sends it. The event type is copied to a
// message attribute so consumers can filter without decoding the body.
func (p *SQSPublisher) Publish(ctx context.Context, aggregate, correlationID string, evt CanonicalEvent) (Envelope, error) {
	env, err := NewEnvelope(aggregate, correlationID, evt)
	if err != nil {
		return Envelope{}, err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal envelope: %w", err)
	}
	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(env.EventType)},
		},
	})
	if err != nil {
		return Envelope{}, fmt.Errorf("events: failed to send SQS message: %w", err)
	}
	p.logger.Debug("event published",
		"event_type", env.EventType,
		"event_id", env.EventID.String(),
		"message_id", aws.ToString(out.MessageId),
	)
	return env, nil
}

// LogPublisher logs events instead of sending them. Used when no queue is
// configured.
type LogPublisher struct {
	logger *logging.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish builds the envelope and logs it.
func (p *LogPublisher) Publish(ctx context.Context, aggregate, correlationID string, evt CanonicalEvent) (Envelope, error) {
	env, err := NewEnvelope(aggregate, correlationID, evt)
	if err != nil {
		return Envelope{}, err
	}
	p.logger.Info("event not published: no queue configured", "event_type", env.EventType, "aggregate", env.Aggregate)
	return env, nil
}

var (
	_ Publisher = (*SQSPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
)
