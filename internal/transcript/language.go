package transcript

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Language describes a supported target language and its provider-specific
// codes. Code matches what the translation provider speaks.
type Language struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	VoiceCode  string `json:"voice_code"`
	RegionName string `json:"region"`
}

var supportedLanguages = []Language{
	{Code: "en", Name: "English", VoiceCode: "en", RegionName: "Europe"},
	{Code: "fr", Name: "French", VoiceCode: "fr", RegionName: "Europe"},
	{Code: "es", Name: "Spanish", VoiceCode: "es", RegionName: "Europe"},
	{Code: "pt", Name: "Portuguese (BR)", VoiceCode: "pt", RegionName: "Europe"},
	{Code: "de", Name: "German", VoiceCode: "de", RegionName: "Europe"},
	{Code: "it", Name: "Italian", VoiceCode: "it", RegionName: "Europe"},
	{Code: "nl", Name: "Dutch", VoiceCode: "nl", RegionName: "Europe"},
	{Code: "pl", Name: "Polish", VoiceCode: "pl", RegionName: "Europe"},
	{Code: "sv", Name: "Swedish", VoiceCode: "sv", RegionName: "Europe"},
	{Code: "da", Name: "Danish", VoiceCode: "da", RegionName: "Europe"},
	{Code: "nb", Name: "Norwegian", VoiceCode: "nb", RegionName: "Europe"},
	{Code: "fi", Name: "Finnish", VoiceCode: "fi", RegionName: "Europe"},
	{Code: "el", Name: "Greek", VoiceCode: "el", RegionName: "Europe"},
	{Code: "cs", Name: "Czech", VoiceCode: "cs", RegionName: "Europe"},
	{Code: "sk", Name: "Slovak", VoiceCode: "sk", RegionName: "Europe"},
	{Code: "ro", Name: "Romanian", VoiceCode: "ro", RegionName: "Europe"},
	{Code: "bg", Name: "Bulgarian", VoiceCode: "bg", RegionName: "Europe"},
	{Code: "hr", Name: "Croatian", VoiceCode: "hr", RegionName: "Europe"},
	{Code: "hu", Name: "Hungarian", VoiceCode: "hu", RegionName: "Europe"},
	{Code: "uk", Name: "Ukrainian", VoiceCode: "uk", RegionName: "Europe"},
	{Code: "ru", Name: "Russian", VoiceCode: "ru", RegionName: "Europe"},
	{Code: "tr", Name: "Turkish", VoiceCode: "tr", RegionName: "Europe"},
	{Code: "ar", Name: "Arabic", VoiceCode: "ar", RegionName: "Asia & Middle East"},
	{Code: "zh", Name: "Chinese (Mandarin)", VoiceCode: "zh", RegionName: "Asia & Middle East"},
	{Code: "hi", Name: "Hindi", VoiceCode: "hi", RegionName: "Asia & Middle East"},
	{Code: "ja", Name: "Japanese", VoiceCode: "ja", RegionName: "Asia & Middle East"},
	{Code: "ko", Name: "Korean", VoiceCode: "ko", RegionName: "Asia & Middle East"},
	{Code: "vi", Name: "Vietnamese", VoiceCode: "vi", RegionName: "Asia & Middle East"},
	{Code: "id", Name: "Indonesian", VoiceCode: "id", RegionName: "Asia & Middle East"},
	{Code: "ms", Name: "Malay", VoiceCode: "ms", RegionName: "Asia & Middle East"},
	{Code: "fil", Name: "Filipino", VoiceCode: "fil", RegionName: "Asia & Middle East"},
	{Code: "ta", Name: "Tamil", VoiceCode: "ta", RegionName: "Asia & Middle East"},
	{Code: "bn", Name: "Bengali", VoiceCode: "bn", RegionName: "Asia & Middle East"},
	{Code: "ur", Name: "Urdu", VoiceCode: "ur", RegionName: "Asia & Middle East"},
	{Code: "th", Name: "Thai", VoiceCode: "th", RegionName: "Asia & Middle East"},
	{Code: "sw", Name: "Swahili", VoiceCode: "sw", RegionName: "Africa"},
	{Code: "ha", Name: "Hausa", VoiceCode: "ha", RegionName: "Africa"},
	{Code: "yo", Name: "Yoruba", VoiceCode: "yo", RegionName: "Africa"},
	{Code: "ig", Name: "Igbo", VoiceCode: "ig", RegionName: "Africa"},
	{Code: "zu", Name: "Zulu", VoiceCode: "zu", RegionName: "Africa"},
	{Code: "xh", Name: "Xhosa", VoiceCode: "xh", RegionName: "Africa"},
	{Code: "af", Name: "Afrikaans", VoiceCode: "af", RegionName: "Africa"},
	{Code: "am", Name: "Amharic", VoiceCode: "am", RegionName: "Africa"},
	{Code: "so", Name: "Somali", VoiceCode: "so", RegionName: "Africa"},
	{Code: "rw", Name: "Kinyarwanda", VoiceCode: "rw", RegionName: "Africa"},
	{Code: "sn", Name: "Shona", VoiceCode: "sn", RegionName: "Africa"},
	{Code: "ny", Name: "Chichewa", VoiceCode: "ny", RegionName: "Africa"},
	{Code: "mg", Name: "Malagasy", VoiceCode: "mg", RegionName: "Africa"},
	{Code: "st", Name: "Sesotho", VoiceCode: "st", RegionName: "Africa"},
	{Code: "tn", Name: "Setswana", VoiceCode: "tn", RegionName: "Africa"},
	{Code: "ts", Name: "Tsonga", VoiceCode: "ts", RegionName: "Africa"},
	{Code: "lg", Name: "Luganda", VoiceCode: "lg", RegionName: "Africa"},
	{Code: "om", Name: "Oromo", VoiceCode: "om", RegionName: "Africa"},
	{Code: "ti", Name: "Tigrinya", VoiceCode: "ti", RegionName: "Africa"},
	{Code: "ln", Name: "Lingala", VoiceCode: "ln", RegionName: "Africa"},
	{Code: "ak", Name: "Twi (Akan)", VoiceCode: "ak", RegionName: "Africa"},
	{Code: "wo", Name: "Wolof", VoiceCode: "wo", RegionName: "Africa"},
	{Code: "nso", Name: "Sepedi", VoiceCode: "nso", RegionName: "Africa"},
	{Code: "ee", Name: "Ewe", VoiceCode: "ee", RegionName: "Africa"},
	{Code: "bm", Name: "Bambara", VoiceCode: "bm", RegionName: "Africa"},
}

var languageIndex = func() map[string]Language {
	index := make(map[string]Language, len(supportedLanguages))
	for _, lang := range supportedLanguages {
		index[lang.Code] = lang
	}
	return index
}()

// Detector code variants mapped to registry codes.
var codeAliases = map[string]string{
	"zh-cn": "zh",
	"zh-tw": "zh",
	"no":    "nb",
	"tl":    "fil",
}

// SupportedLanguages returns the full registry in display order.
func SupportedLanguages() []Language {
	return append([]Language(nil), supportedLanguages...)
}

// LookupLanguage resolves a code (including detector aliases) to its registry
// entry.
func LookupLanguage(code string) (Language, bool) {
	normalized := NormalizeLanguageCode(code)
	lang, ok := languageIndex[normalized]
	return lang, ok
}

// LanguageName returns the display name for a code, falling back to the
// upper-cased code for unknown languages.
func LanguageName(code string) string {
	if lang, ok := LookupLanguage(code); ok {
		return lang.Name
	}
	return strings.ToUpper(code)
}

// NormalizeLanguageCode lower-cases a detector code and collapses known
// aliases and regional variants.
func NormalizeLanguageCode(code string) string {
	lowered := strings.ToLower(strings.TrimSpace(code))
	if alias, ok := codeAliases[lowered]; ok {
		return alias
	}
	if base, _, found := strings.Cut(lowered, "-"); found {
		if alias, ok := codeAliases[base]; ok {
			return alias
		}
		return base
	}
	return lowered
}

// LanguageCount summarizes how often one language was detected.
type LanguageCount struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// SummarizeLanguages reduces per-segment detections into a frequency table
// sorted by count, then code for a stable order. Unknown detections are
// excluded.
func SummarizeLanguages(segments []Segment) []LanguageCount {
	counts := make(map[string]*LanguageCount)
	total := 0
	for _, seg := range segments {
		if seg.DetectedLanguage == nil || seg.DetectedLanguage.Code == "" || seg.DetectedLanguage.Code == "unknown" {
			continue
		}
		code := seg.DetectedLanguage.Code
		entry, ok := counts[code]
		if !ok {
			entry = &LanguageCount{Code: code, Name: seg.DetectedLanguage.Name}
			counts[code] = entry
		}
		entry.Count++
		total++
	}
	if total == 0 {
		return nil
	}

	summary := make([]LanguageCount, 0, len(counts))
	for _, entry := range counts {
		entry.Percentage = round1(float64(entry.Count) / float64(total) * 100)
		summary = append(summary, *entry)
	}
	sort.Slice(summary, func(i, j int) bool {
		if summary[i].Count != summary[j].Count {
			return summary[i].Count > summary[j].Count
		}
		return summary[i].Code < summary[j].Code
	})
	return summary
}

// EncodeLanguageCounts serializes a language summary for storage on the job.
func EncodeLanguageCounts(counts []LanguageCount) (string, error) {
	encoded, err := json.Marshal(counts)
	if err != nil {
		return "", fmt.Errorf("encode language summary: %w", err)
	}
	return string(encoded), nil
}

// DecodeLanguageCounts parses a stored language summary. An empty column
// yields nil.
func DecodeLanguageCounts(raw string) ([]LanguageCount, error) {
	if raw == "" {
		return nil, nil
	}
	var counts []LanguageCount
	if err := json.Unmarshal([]byte(raw), &counts); err != nil {
		return nil, fmt.Errorf("decode language summary: %w", err)
	}
	return counts, nil
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
