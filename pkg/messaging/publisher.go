// Package messaging publishes analysis report envelopes to AMQP for
// downstream report generation and CI gating consumers.
package messaging

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// Report kinds carried in an envelope
const (
	KindAnalysis       = "analysis"
	KindClassification = "classification"
	KindComparison     = "comparison"
)

// ReportEnvelope wraps one result payload for the wire.
type ReportEnvelope struct {
	ReportID    string      `json:"report_id"`
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Payload     interface{} `json:"payload"`
}

// PublisherConfig holds AMQP publisher configuration
type PublisherConfig struct {
	URL        string
	QueueName  string
	Durable    bool
	AutoDelete bool
}

// ResultPublisher handles the AMQP connection and report publishing
type ResultPublisher struct {
	logger    *logrus.Logger
	config    PublisherConfig
	conn      *amqp.Connection
	channel   *amqp.Channel
	connected bool
	connMutex sync.RWMutex
	stopChan  chan struct{}
}

// NewResultPublisher creates a new result publisher
func NewResultPublisher(logger *logrus.Logger, config PublisherConfig) *ResultPublisher {
	config.Durable = true
	config.AutoDelete = false

	return &ResultPublisher{
		logger:   logger,
		config:   config,
		stopChan: make(chan struct{}),
	}
}

// Connect establishes a connection to the AMQP server and declares the
// report queue.
func (p *ResultPublisher) Connect() error {
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if p.connected {
		return nil
	}

	if p.config.URL == "" || p.config.QueueName == "" {
		p.logger.Warn("AMQP_URL or AMQP_QUEUE_NAME not set, report publishing will be disabled")
		return fmt.Errorf("AMQP URL or queue name not configured")
	}

	conn, err := amqp.DialConfig(p.config.URL, amqp.Config{
		Dial: amqp.DefaultDial(5 * time.Second),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP server: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	_, err = channel.QueueDeclare(
		p.config.QueueName,
		p.config.Durable,
		p.config.AutoDelete,
		false, // Exclusive
		false, // No-wait
		nil,   // Arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to declare AMQP queue: %w", err)
	}

	p.conn = conn
	p.channel = channel
	p.connected = true
	p.stopChan = make(chan struct{})

	p.logger.WithFields(logrus.Fields{
		"url":   p.config.URL,
		"queue": p.config.QueueName,
	}).Info("Connected to AMQP server")

	go p.monitorConnection()

	return nil
}

// Disconnect closes the AMQP connection
func (p *ResultPublisher) Disconnect() {
	p.connMutex.Lock()
	defer p.connMutex.Unlock()

	if !p.connected {
		return
	}

	close(p.stopChan)

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}

	p.connected = false
	p.logger.Info("Disconnected from AMQP server")
}

// IsConnected returns the connection status
func (p *ResultPublisher) IsConnected() bool {
	p.connMutex.RLock()
	defer p.connMutex.RUnlock()
	return p.connected
}

// PublishReport wraps the payload in a uuid-stamped envelope and publishes it
// to the report queue. The payload must be JSON-serializable.
func (p *ResultPublisher) PublishReport(kind string, payload interface{}) (string, error) {
	envelope := ReportEnvelope{
		ReportID:    uuid.New().String(),
		Kind:        kind,
		GeneratedAt: time.Now().UTC(),
		Payload:     payload,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s report: %w", kind, err)
	}

	p.connMutex.RLock()
	defer p.connMutex.RUnlock()

	if !p.connected || p.channel == nil {
		return "", fmt.Errorf("not connected to AMQP server")
	}

	err = p.channel.Publish(
		"",                 // Exchange (default)
		p.config.QueueName, // Routing key
		false,              // Mandatory
		false,              // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    envelope.ReportID,
			Timestamp:    envelope.GeneratedAt,
			Body:         body,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to publish %s report: %w", kind, err)
	}

	p.logger.WithFields(logrus.Fields{
		"report_id": envelope.ReportID,
		"kind":      kind,
		"queue":     p.config.QueueName,
		"bytes":     len(body),
	}).Debug("Published report")

	return envelope.ReportID, nil
}

// monitorConnection watches for the connection closing and flips the status.
func (p *ResultPublisher) monitorConnection() {
	closeChan := make(chan *amqp.Error, 1)
	p.connMutex.RLock()
	if p.conn != nil {
		p.conn.NotifyClose(closeChan)
	}
	p.connMutex.RUnlock()

	select {
	case <-p.stopChan:
		return
	case amqpErr := <-closeChan:
		p.connMutex.Lock()
		p.connected = false
		p.connMutex.Unlock()

		if amqpErr != nil {
			p.logger.WithError(amqpErr).Warn("AMQP connection closed unexpectedly")
		}
	}
}
