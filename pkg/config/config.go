package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"voiceobs-server/pkg/errors"
	"voiceobs-server/pkg/failures"
	"voiceobs-server/pkg/regression"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
	Messaging MessagingConfig `json:"messaging"`

	Failures   *failures.FailureThresholds     `json:"failure_thresholds"`
	Regression *regression.RegressionThresholds `json:"regression_thresholds"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" env:"METRICS_ENABLED" default:"false"`
	Port    int    `json:"port" env:"METRICS_PORT" default:"9090"`
	Path    string `json:"path" env:"METRICS_PATH" default:"/metrics"`
}

// MessagingConfig holds AMQP publishing configuration. Publishing is disabled
// when the URL is empty.
type MessagingConfig struct {
	AMQPURL   string `json:"amqp_url" env:"AMQP_URL"`
	QueueName string `json:"queue_name" env:"AMQP_QUEUE_NAME" default:"voiceobs.reports"`
}

// Load loads the configuration from environment variables or .env file
func Load(logger *logrus.Logger) (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		logger.WithError(err).Warn("Failed to get current working directory")
		wd = "unknown"
	}

	// Try loading a .env file from the usual locations
	possibleEnvFiles := []string{
		".env",
		"../.env",
		filepath.Join(wd, ".env"),
	}

	var loadedFrom string
	for _, envFile := range possibleEnvFiles {
		if _, statErr := os.Stat(envFile); statErr == nil {
			if loadErr := godotenv.Load(envFile); loadErr == nil {
				loadedFrom, _ = filepath.Abs(envFile)
				break
			}
		}
	}

	if loadedFrom != "" {
		logger.WithFields(logrus.Fields{
			"working_dir": wd,
			"path":        loadedFrom,
		}).Debug("Loaded .env file")
	} else {
		logger.WithField("working_dir", wd).Debug("No .env file found, using environment variables only")
	}

	config := &Config{}

	loadLoggingConfig(&config.Logging)
	loadMetricsConfig(&config.Metrics)
	loadMessagingConfig(&config.Messaging)
	config.Failures = loadFailureThresholds()
	config.Regression = loadRegressionThresholds()

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return config, nil
}

func loadLoggingConfig(c *LoggingConfig) {
	c.Level = getEnv("LOG_LEVEL", "info")
	c.Format = getEnv("LOG_FORMAT", "text")
}

func loadMetricsConfig(c *MetricsConfig) {
	c.Enabled = getEnvBool("METRICS_ENABLED", false)
	c.Port = getEnvInt("METRICS_PORT", 9090)
	c.Path = getEnv("METRICS_PATH", "/metrics")
}

func loadMessagingConfig(c *MessagingConfig) {
	c.AMQPURL = getEnv("AMQP_URL", "")
	c.QueueName = getEnv("AMQP_QUEUE_NAME", "voiceobs.reports")
}

// loadFailureThresholds starts from the drop-in defaults and applies any
// per-rule environment overrides.
func loadFailureThresholds() *failures.FailureThresholds {
	t := failures.DefaultFailureThresholds()

	t.SlowASRMS = loadTier("VOICEOBS_SLOW_ASR", t.SlowASRMS)
	t.SlowLLMMS = loadTier("VOICEOBS_SLOW_LLM", t.SlowLLMMS)
	t.SlowTTSMS = loadTier("VOICEOBS_SLOW_TTS", t.SlowTTSMS)
	t.ExcessiveSilenceMS = loadTier("VOICEOBS_EXCESSIVE_SILENCE", t.ExcessiveSilenceMS)
	t.InterruptionOverlapMS = loadTier("VOICEOBS_INTERRUPTION_OVERLAP", t.InterruptionOverlapMS)

	t.ASRMinConfidence = getEnvFloat("VOICEOBS_ASR_MIN_CONFIDENCE", t.ASRMinConfidence)
	t.ASRConfidenceLow = getEnvFloat("VOICEOBS_ASR_CONFIDENCE_LOW", t.ASRConfidenceLow)
	t.ASRConfidenceMedium = getEnvFloat("VOICEOBS_ASR_CONFIDENCE_MEDIUM", t.ASRConfidenceMedium)

	return t
}

func loadTier(prefix string, defaults failures.TierThresholds) failures.TierThresholds {
	return failures.TierThresholds{
		Low:    getEnvFloat(prefix+"_LOW_MS", defaults.Low),
		Medium: getEnvFloat(prefix+"_MEDIUM_MS", defaults.Medium),
		High:   getEnvFloat(prefix+"_HIGH_MS", defaults.High),
	}
}

func loadRegressionThresholds() *regression.RegressionThresholds {
	t := regression.DefaultRegressionThresholds()

	t.LatencyWarningPercent = getEnvFloat("VOICEOBS_LATENCY_WARNING_PCT", t.LatencyWarningPercent)
	t.LatencyCriticalPercent = getEnvFloat("VOICEOBS_LATENCY_CRITICAL_PCT", t.LatencyCriticalPercent)
	t.SilenceWarningPercent = getEnvFloat("VOICEOBS_SILENCE_WARNING_PCT", t.SilenceWarningPercent)
	t.SilenceCriticalPercent = getEnvFloat("VOICEOBS_SILENCE_CRITICAL_PCT", t.SilenceCriticalPercent)
	t.InterruptionRateWarningPP = getEnvFloat("VOICEOBS_INTERRUPTION_WARNING_PP", t.InterruptionRateWarningPP)
	t.InterruptionRateCriticalPP = getEnvFloat("VOICEOBS_INTERRUPTION_CRITICAL_PP", t.InterruptionRateCriticalPP)
	t.IntentDecreaseWarning = getEnvFloat("VOICEOBS_INTENT_WARNING", t.IntentDecreaseWarning)
	t.IntentDecreaseCritical = getEnvFloat("VOICEOBS_INTENT_CRITICAL", t.IntentDecreaseCritical)
	t.RelevanceDecreaseWarningPercent = getEnvFloat("VOICEOBS_RELEVANCE_WARNING_PCT", t.RelevanceDecreaseWarningPercent)
	t.RelevanceDecreaseCriticalPercent = getEnvFloat("VOICEOBS_RELEVANCE_CRITICAL_PCT", t.RelevanceDecreaseCriticalPercent)

	return t
}

// Validate checks the loaded configuration for caller errors
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return errors.New("invalid log level", map[string]interface{}{
			"level": c.Logging.Level,
		})
	}

	if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
		return errors.New("invalid metrics port", map[string]interface{}{
			"port": c.Metrics.Port,
		})
	}

	if c.Failures.ASRMinConfidence < 0 || c.Failures.ASRMinConfidence > 1 {
		return errors.Wrap(errors.ErrInvalidThresholds, "ASR minimum confidence must be within [0,1]")
	}

	for _, tier := range []failures.TierThresholds{
		c.Failures.SlowASRMS, c.Failures.SlowLLMMS, c.Failures.SlowTTSMS,
		c.Failures.ExcessiveSilenceMS, c.Failures.InterruptionOverlapMS,
	} {
		if tier.Low > tier.Medium || tier.Medium > tier.High {
			return errors.Wrap(errors.ErrInvalidThresholds, "tier cutoffs must be non-decreasing")
		}
	}

	return nil
}

// Helper function to get an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Helper function to get a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(value) {
	case "true", "yes", "1", "on":
		return true
	case "false", "no", "0", "off":
		return false
	default:
		return defaultValue
	}
}

// Helper function to get an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// getEnvFloat retrieves an environment variable and converts it to float64
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatValue
}
