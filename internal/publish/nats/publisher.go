// Package nats publishes detected arbitrage to NATS JetStream.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"solana-atomic-arb/internal/domain"
)

const (
	// StreamName is the JetStream stream holding arbitrage events.
	StreamName = "ARBITRAGE"

	// DefaultSubjectPrefix is used when no prefix is configured.
	DefaultSubjectPrefix = "arbitrage.detected"

	// StreamRetention is how long messages are retained.
	StreamRetention = 30 * 24 * time.Hour
)

// Publisher publishes arbitrage records to JetStream. It implements the
// scan record sink.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	prefix string
	now    func() time.Time
	logger *zap.Logger
}

// NewPublisher connects to NATS and ensures the stream exists.
func NewPublisher(ctx context.Context, natsURL, subjectPrefix string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("arbscan-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	p := &Publisher{
		nc:     nc,
		js:     js,
		prefix: subjectPrefix,
		now:    time.Now,
		logger: logger,
	}

	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}

	logger.Info("nats publisher initialized",
		zap.String("url", natsURL),
		zap.String("stream", StreamName),
		zap.String("subjects", p.subjects()))
	return p, nil
}

func (p *Publisher) subjects() string {
	return p.prefix + ".*"
}

// Subject returns the subject a trader's records are published on.
func (p *Publisher) Subject(trader string) string {
	return p.prefix + "." + trader
}

func (p *Publisher) ensureStream(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Atomic arbitrage detected on Solana",
		Subjects:    []string{p.subjects()},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", StreamName, err)
	}
	return nil
}

// Write publishes each record and waits for its acknowledgement. The record
// id is used as the message id so that re-runs are deduplicated by the
// stream.
func (p *Publisher) Write(ctx context.Context, records []domain.ArbitrageRecord) error {
	for _, rec := range records {
		data, err := json.Marshal(FromRecord(rec, p.now()))
		if err != nil {
			return fmt.Errorf("marshal arbitrage event: %w", err)
		}
		subject := p.Subject(rec.Trader)
		if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(rec.RecordID)); err != nil {
			return fmt.Errorf("publish %s: %w", subject, err)
		}
		p.logger.Debug("published arbitrage event",
			zap.String("subject", subject),
			zap.String("signature", rec.TransactionID))
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return err
	}
	return nil
}
