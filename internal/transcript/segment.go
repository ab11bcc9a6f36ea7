// Package transcript defines the segment records passed between pipeline
// stages and the supported-language registry.
package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DetectedLanguage records per-segment language detection output.
type DetectedLanguage struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Segment is one diarized utterance. StartTime and EndTime are seconds from
// the start of the recording. TranslatedText is empty until the translation
// stage fills it.
type Segment struct {
	Speaker          string            `json:"speaker"`
	Text             string            `json:"text"`
	StartTime        float64           `json:"start_time"`
	EndTime          float64           `json:"end_time"`
	DetectedLanguage *DetectedLanguage `json:"detected_language,omitempty"`
	TranslatedText   string            `json:"translated_text,omitempty"`
}

// Duration returns the segment length in seconds, never negative.
func (s Segment) Duration() float64 {
	if d := s.EndTime - s.StartTime; d > 0 {
		return d
	}
	return 0
}

// Decode parses a transcript JSON column into segments.
func Decode(raw string) ([]Segment, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var segments []Segment
	if err := json.Unmarshal([]byte(raw), &segments); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return segments, nil
}

// Encode serializes segments for storage on the job row.
func Encode(segments []Segment) (string, error) {
	encoded, err := json.Marshal(segments)
	if err != nil {
		return "", fmt.Errorf("encode transcript: %w", err)
	}
	return string(encoded), nil
}

// Speakers returns the distinct speaker labels in first-appearance order.
func Speakers(segments []Segment) []string {
	seen := make(map[string]struct{})
	var order []string
	for _, seg := range segments {
		if seg.Speaker == "" {
			continue
		}
		if _, ok := seen[seg.Speaker]; ok {
			continue
		}
		seen[seg.Speaker] = struct{}{}
		order = append(order, seg.Speaker)
	}
	return order
}

// TotalSpeech sums the spoken duration across all segments.
func TotalSpeech(segments []Segment) float64 {
	var total float64
	for _, seg := range segments {
		total += seg.Duration()
	}
	return total
}
