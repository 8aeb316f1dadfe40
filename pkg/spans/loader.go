package spans

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"voiceobs-server/pkg/errors"
)

// maxLineBytes bounds a single JSON-Lines record. Span objects are small;
// anything beyond this is malformed input.
const maxLineBytes = 1024 * 1024

// LoadFile reads a UTF-8 JSON-Lines span file (one JSON object per non-blank
// line). Malformed lines fail fast with line context; they are never skipped.
func LoadFile(path string, logger *logrus.Logger) ([]Span, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open span file", map[string]interface{}{
			"path": path,
		})
	}
	defer file.Close()

	loaded, err := Load(file)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load span file", map[string]interface{}{
			"path": path,
		})
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"path":  path,
			"spans": len(loaded),
		}).Debug("Loaded span file")
	}

	return loaded, nil
}

// Load reads JSON-Lines spans from an arbitrary reader.
func Load(r io.Reader) ([]Span, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var result []Span
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw map[string]interface{}
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			return nil, errors.NewMalformedSpan("invalid JSON line", map[string]interface{}{
				"line":  lineNo,
				"cause": err.Error(),
			})
		}

		span, err := ParseSpan(raw)
		if err != nil {
			return nil, errors.Wrap(err, "invalid span object", map[string]interface{}{
				"line": lineNo,
			})
		}

		result = append(result, span)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed reading span input")
	}

	return result, nil
}
