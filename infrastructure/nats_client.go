package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const (
	natsClientName       = "rifei"
	natsReconnectWait    = 2 * time.Second
	natsMaxReconnects    = 10
	domainEventRetention = 7 * 24 * time.Hour
	// Window in which JetStream drops a republished event with the same id
	domainEventDedupe = 10 * time.Minute
)

var errJetStreamUnavailable = errors.New("not connected to NATS JetStream")

// NATSClient owns the JetStream connection domain events are published on
type NATSClient struct {
	servers string
	nc      *nats.Conn
	js      nats.JetStreamContext
}

// NewNATSClient creates a client for a comma separated server list
func NewNATSClient(servers string) *NATSClient {
	return &NATSClient{servers: servers}
}

// Connect dials NATS and opens a JetStream context
func (c *NATSClient) Connect(ctx context.Context) error {
	nc, err := nats.Connect(c.servers,
		nats.Name(natsClientName),
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("server", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream(nats.Context(ctx))
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	c.nc, c.js = nc, js
	log.WithField("servers", c.servers).Info("Connected to NATS with JetStream")
	return nil
}

// Close drains pending publishes and closes the connection
func (c *NATSClient) Close() error {
	if c.nc == nil {
		return nil
	}
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}

// EnsureStream creates the stream, or widens an existing one whose subject list
// is missing some of subjects.
func (c *NATSClient) EnsureStream(streamName string, subjects []string) error {
	if c.js == nil {
		return errJetStreamUnavailable
	}

	info, err := c.js.StreamInfo(streamName)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:        streamName,
			Description: "Raffle, reservation and payment domain events",
			Subjects:    subjects,
			Retention:   nats.LimitsPolicy,
			Storage:     nats.FileStorage,
			MaxAge:      domainEventRetention,
			Duplicates:  domainEventDedupe,
			Replicas:    1,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}
		log.WithFields(log.Fields{"stream": streamName, "subjects": len(subjects)}).Info("Created JetStream stream")
		return nil
	case err != nil:
		return fmt.Errorf("failed to inspect stream %s: %w", streamName, err)
	}

	missing := 0
	streamConfig := info.Config
	for _, subject := range subjects {
		if !slices.Contains(streamConfig.Subjects, subject) {
			streamConfig.Subjects = append(streamConfig.Subjects, subject)
			missing++
		}
	}
	if missing == 0 {
		return nil
	}

	if _, err := c.js.UpdateStream(&streamConfig); err != nil {
		return fmt.Errorf("failed to add subjects to stream %s: %w", streamName, err)
	}
	log.WithFields(log.Fields{"stream": streamName, "added": missing}).Info("Updated JetStream stream subjects")
	return nil
}

// Publish sends data on subject. msgID lets JetStream drop a redelivered event.
func (c *NATSClient) Publish(ctx context.Context, subject, msgID string, data []byte) error {
	if c.js == nil {
		return errJetStreamUnavailable
	}

	ack, err := c.js.Publish(subject, data, nats.MsgId(msgID), nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.WithFields(log.Fields{
		"subject":   subject,
		"sequence":  ack.Sequence,
		"duplicate": ack.Duplicate,
	}).Debug("Published event to NATS")
	return nil
}
