package messaging

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestConnectRequiresConfiguration(t *testing.T) {
	pub := NewResultPublisher(testLogger(), PublisherConfig{})

	err := pub.Connect()
	require.Error(t, err)
	assert.False(t, pub.IsConnected())
}

func TestPublishReportWithoutConnection(t *testing.T) {
	pub := NewResultPublisher(testLogger(), PublisherConfig{
		URL:       "amqp://localhost:5672",
		QueueName: "voiceobs.reports",
	})

	_, err := pub.PublishReport(KindAnalysis, map[string]int{"total_spans": 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestDisconnectBeforeConnectIsNoOp(t *testing.T) {
	pub := NewResultPublisher(testLogger(), PublisherConfig{})
	pub.Disconnect()
	assert.False(t, pub.IsConnected())
}

func TestReportEnvelopeWireShape(t *testing.T) {
	envelope := ReportEnvelope{
		ReportID:    uuid.New().String(),
		Kind:        KindComparison,
		GeneratedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Payload:     map[string]bool{"has_regressions": true},
	}

	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, envelope.ReportID, decoded["report_id"])
	assert.Equal(t, "comparison", decoded["kind"])
	assert.Equal(t, "2026-08-01T12:00:00Z", decoded["generated_at"])
	assert.Equal(t, map[string]interface{}{"has_regressions": true}, decoded["payload"])
}
