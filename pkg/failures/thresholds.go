package failures

// TierThresholds holds the low/medium/high cutoffs for one higher-is-worse
// rule. A value must strictly exceed Low to count as a failure at all.
type TierThresholds struct {
	Low    float64 `json:"low"`
	Medium float64 `json:"medium"`
	High   float64 `json:"high"`
}

// severityFor tiers a higher-is-worse value that already exceeded Low.
func (t TierThresholds) severityFor(value float64) Severity {
	switch {
	case value > t.High:
		return SeverityHigh
	case value > t.Medium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// FailureThresholds is the immutable set of numeric cutoffs driving the rule
// classifier. Construct with DefaultFailureThresholds and adjust fields before
// the first Classify call.
type FailureThresholds struct {
	SlowASRMS TierThresholds `json:"slow_asr_ms"`
	SlowLLMMS TierThresholds `json:"slow_llm_ms"`
	SlowTTSMS TierThresholds `json:"slow_tts_ms"`

	ExcessiveSilenceMS    TierThresholds `json:"excessive_silence_ms"`
	InterruptionOverlapMS TierThresholds `json:"interruption_overlap_ms"`

	// ASR confidence is lower-is-worse: a reading below ASRMinConfidence is a
	// failure, tiered by how far it dropped.
	ASRMinConfidence    float64 `json:"asr_min_confidence"`
	ASRConfidenceLow    float64 `json:"asr_confidence_low"`
	ASRConfidenceMedium float64 `json:"asr_confidence_medium"`
}

// DefaultFailureThresholds returns the drop-in default cutoffs.
func DefaultFailureThresholds() *FailureThresholds {
	slowStage := TierThresholds{Low: 2000, Medium: 3000, High: 5000}
	return &FailureThresholds{
		SlowASRMS:             slowStage,
		SlowLLMMS:             slowStage,
		SlowTTSMS:             slowStage,
		ExcessiveSilenceMS:    TierThresholds{Low: 3000, Medium: 5000, High: 8000},
		InterruptionOverlapMS: TierThresholds{Low: 0, Medium: 200, High: 500},
		ASRMinConfidence:      0.7,
		ASRConfidenceLow:      0.5,
		ASRConfidenceMedium:   0.3,
	}
}

// slowStageFor returns the slow-stage tier for an asr/llm/tts stage id.
func (t *FailureThresholds) slowStageFor(stage string) (TierThresholds, bool) {
	switch stage {
	case "asr":
		return t.SlowASRMS, true
	case "llm":
		return t.SlowLLMMS, true
	case "tts":
		return t.SlowTTSMS, true
	}
	return TierThresholds{}, false
}

// confidenceSeverity tiers an ASR confidence reading that already fell below
// ASRMinConfidence.
func (t *FailureThresholds) confidenceSeverity(confidence float64) Severity {
	switch {
	case confidence >= t.ASRConfidenceLow:
		return SeverityLow
	case confidence >= t.ASRConfidenceMedium:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}
