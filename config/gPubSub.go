package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// LossAlertMessage is the payload published for material loss reports.
type LossAlertMessage struct {
	OutboxId      int       `json:"outbox_id"`
	BarId         string    `json:"bar_id"`
	ReferenceId   string    `json:"reference_id"`
	EventType     string    `json:"event_type"`
	Payload       []byte    `json:"payload"`
	CorrelationId string    `json:"correlation_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher connects with Application Default Credentials unless
// credentials JSON is configured, and makes sure the topic exists.
func NewPubSubPublisher(ctx context.Context, cfg PubSubConfig) (*PubSubPublisher, error) {
	if !cfg.Enabled() {
		return nil, errors.New("pubsub project/topic not configured")
	}

	var (
		client *pubsub.Client
		err    error
	)
	if cfg.CredentialsJSON != "" {
		client, err = pubsub.NewClient(ctx, cfg.ProjectId, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	} else {
		client, err = pubsub.NewClient(ctx, cfg.ProjectId)
	}
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}

	topic, err := createTopicIfNotExists(ctx, client, cfg.LossAlertTopic)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	log.Printf("pubsub publisher ready (project_id=%s topic=%s)", cfg.ProjectId, cfg.LossAlertTopic)
	return &PubSubPublisher{client: client, topic: topic}, nil
}

func createTopicIfNotExists(ctx context.Context, c *pubsub.Client, topic string) (*pubsub.Topic, error) {
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	t := c.Topic(topic)
	ok, err := t.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = c.CreateTopic(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	return t, nil
}

// Publish returns the server-assigned message ID.
func (p *PubSubPublisher) Publish(ctx context.Context, msg LossAlertMessage) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"bar_id":     msg.BarId,
			"event_type": msg.EventType,
		},
	})
	return result.Get(ctx)
}

func (p *PubSubPublisher) Close() error {
	if p == nil {
		return nil
	}
	p.topic.Stop()
	return p.client.Close()
}
