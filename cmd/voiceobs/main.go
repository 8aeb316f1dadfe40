package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"voiceobs-server/pkg/analytics"
	"voiceobs-server/pkg/config"
	"voiceobs-server/pkg/failures"
	"voiceobs-server/pkg/messaging"
	"voiceobs-server/pkg/metrics"
	"voiceobs-server/pkg/regression"
	"voiceobs-server/pkg/spans"
)

var logger = logrus.New()

// report is the top-level JSON document written by the CLI and published to
// AMQP. Comparison is null when no baseline is provided.
type report struct {
	ReportID       string                         `json:"report_id"`
	GeneratedAt    time.Time                      `json:"generated_at"`
	Analysis       *analytics.AnalysisResult      `json:"analysis"`
	Classification *failures.ClassificationResult `json:"classification"`
	Comparison     *regression.ComparisonResult   `json:"comparison"`
}

func main() {
	spanPath := flag.String("spans", "", "Path to the JSON-Lines span file to analyze (required)")
	baselinePath := flag.String("baseline", "", "Path to a baseline JSON-Lines span file for regression comparison")
	outputPath := flag.String("output", "", "Path to write the JSON report to (default stdout)")
	flag.Parse()

	if *spanPath == "" {
		fmt.Fprintln(os.Stderr, "usage: voiceobs -spans <file.jsonl> [-baseline <file.jsonl>] [-output <report.json>]")
		os.Exit(2)
	}

	cfg, err := config.Load(logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogger(cfg.Logging)

	metrics.StartMetrics(logger, cfg.Metrics.Enabled)
	if cfg.Metrics.Enabled {
		metrics.SetMetricsPath(cfg.Metrics.Path)
		go serveMetrics(cfg.Metrics.Port)
	}

	batch, err := spans.LoadFile(*spanPath, logger)
	if err != nil {
		logger.WithError(err).WithField("path", *spanPath).Fatal("Failed to load span file")
	}

	analyzer := analytics.NewAnalyzer(logger)
	classifier := failures.NewClassifier(logger)

	result := analyzer.AnalyzeSpans(batch)
	classification := classifier.Classify(batch, cfg.Failures)

	out := &report{
		ReportID:       uuid.New().String(),
		GeneratedAt:    time.Now().UTC(),
		Analysis:       result,
		Classification: classification,
	}

	if *baselinePath != "" {
		baselineBatch, err := spans.LoadFile(*baselinePath, logger)
		if err != nil {
			logger.WithError(err).WithField("path", *baselinePath).Fatal("Failed to load baseline span file")
		}

		baseline := analyzer.AnalyzeSpans(baselineBatch)
		comparator := regression.NewComparator(logger)
		out.Comparison = comparator.CompareRuns(baseline, result, cfg.Regression)
	}

	if err := writeReport(out, *outputPath); err != nil {
		logger.WithError(err).Fatal("Failed to write report")
	}

	publishReport(cfg.Messaging, out)

	logger.WithFields(logrus.Fields{
		"report_id":     out.ReportID,
		"spans":         result.TotalSpans,
		"conversations": result.TotalConversations,
		"failures":      len(classification.Failures),
	}).Info("Analysis complete")

	if out.Comparison != nil && out.Comparison.HasCriticalRegressions() {
		logger.WithField("regressions", len(out.Comparison.Regressions)).
			Error("Critical regressions detected against baseline")
		os.Exit(1)
	}
}

// configureLogger applies the logging section of the configuration.
func configureLogger(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func serveMetrics(port int) {
	mux := http.NewServeMux()
	metrics.RegisterHandler(mux)

	addr := fmt.Sprintf(":%d", port)
	logger.WithField("addr", addr).Info("Serving Prometheus metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Warn("Metrics server stopped")
	}
}

func writeReport(out *report, path string) error {
	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	if path == "" {
		fmt.Println(string(encoded))
		return nil
	}
	return os.WriteFile(path, append(encoded, '\n'), 0o644)
}

// publishReport sends the report to AMQP when messaging is configured.
// Publishing failures are logged, never fatal: the written report is the
// primary artifact.
func publishReport(cfg config.MessagingConfig, out *report) {
	if cfg.AMQPURL == "" {
		return
	}

	publisher := messaging.NewResultPublisher(logger, messaging.PublisherConfig{
		URL:       cfg.AMQPURL,
		QueueName: cfg.QueueName,
	})
	if err := publisher.Connect(); err != nil {
		logger.WithError(err).Warn("Skipping report publishing, AMQP unavailable")
		return
	}
	defer publisher.Disconnect()

	kind := messaging.KindAnalysis
	if out.Comparison != nil {
		kind = messaging.KindComparison
	}
	if _, err := publisher.PublishReport(kind, out); err != nil {
		logger.WithError(err).Warn("Failed to publish report")
	}
}
