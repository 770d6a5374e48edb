package cipher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/RowanDark/postparam"
)

var (
	// base64Pattern is the classic filter rule for Base64 payloads.
	base64Pattern    = regexp.MustCompile(`^[A-Za-z0-9+/]+=*$`)
	postParamPattern = regexp.MustCompile(`^[A-Za-z0-9+/=]+$`)
	percentPattern   = regexp.MustCompile(`%[0-9A-Fa-f]{2}`)
	hexPattern       = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	digitsPattern    = regexp.MustCompile(`^[0-9]+$`)
)

// minConfidence is the threshold below which detections are dropped.
const minConfidence = 0.3

// SmartDetector implements encoding detection for the encodings this module
// produces, plus the transport encodings they usually travel in.
type SmartDetector struct{}

// NewSmartDetector creates a new smart detector
func NewSmartDetector() *SmartDetector {
	return &SmartDetector{}
}

// Detect attempts to identify the encoding of the input
func (d *SmartDetector) Detect(ctx context.Context, input []byte) ([]DetectionResult, error) {
	if len(input) == 0 {
		return nil, errors.New("empty input")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var results []DetectionResult
	results = append(results, d.detectBase64(input)...)
	results = append(results, d.detectPostParam(input)...)
	results = append(results, d.detectURL(input)...)
	results = append(results, d.detectHex(input)...)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})

	filtered := results[:0]
	for _, r := range results {
		if r.Confidence >= minConfidence {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// SupportedEncodings returns a list of encodings this detector can identify
func (d *SmartDetector) SupportedEncodings() []string {
	return []string{
		"base64",
		"postparam",
		"url-encoded",
		"hex",
	}
}

// LooksLikeBase64 reports whether a naive pattern filter would flag s as a
// Base64 payload.
func LooksLikeBase64(s string) bool {
	s = strings.TrimSpace(s)
	return len(s)%4 == 0 && base64Pattern.MatchString(s)
}

// detectBase64 checks if input is Base64 encoded text
func (d *SmartDetector) detectBase64(input []byte) []DetectionResult {
	inputStr := strings.TrimSpace(string(input))
	if !base64Pattern.MatchString(inputStr) {
		return nil
	}

	decoded, err := postparam.Decode(inputStr)
	if err != nil {
		return nil
	}

	confidence := 0.9
	reasoning := "Matches Base64 pattern and decodes to text"
	if !isPrintableText(decoded) {
		confidence = 0.5
		reasoning = "Matches Base64 pattern but decodes to non-printable text"
	}
	return []DetectionResult{{
		Encoding:   "base64",
		Confidence: confidence,
		Reasoning:  reasoning,
		Operation:  "base64_decode",
	}}
}

// detectPostParam checks if input is an obfuscated post parameter. Padding
// moves to the front on reversal, so a leading '=' is a strong signal.
func (d *SmartDetector) detectPostParam(input []byte) []DetectionResult {
	inputStr := strings.TrimSpace(string(input))
	if len(inputStr)%4 != 0 || !postParamPattern.MatchString(inputStr) {
		return nil
	}

	decoded, err := postparam.DecodePostParam(inputStr)
	if err != nil || !isPrintableText(decoded) {
		return nil
	}

	confidence := 0.6
	reasoning := "Decodes to text after undoing pair exchange and reversal"
	if strings.HasPrefix(inputStr, "=") {
		confidence = 0.95
		reasoning = "Leading padding symbol and decodes to text after undoing pair exchange and reversal"
	}
	return []DetectionResult{{
		Encoding:   "postparam",
		Confidence: confidence,
		Reasoning:  reasoning,
		Operation:  "postparam_decode",
	}}
}

// detectURL checks if input is URL-encoded
func (d *SmartDetector) detectURL(input []byte) []DetectionResult {
	inputStr := string(input)
	matches := percentPattern.FindAllString(inputStr, -1)
	if len(matches) == 0 {
		return nil
	}

	// Each match is 3 characters
	density := float64(len(matches)*3) / float64(len(inputStr))
	confidence := 0.5 + math.Min(float64(len(matches))*0.1, 0.3) + math.Min(density, 0.2)
	confidence = math.Min(confidence, 0.95)

	return []DetectionResult{{
		Encoding:   "url-encoded",
		Confidence: confidence,
		Reasoning:  fmt.Sprintf("Contains %d URL-encoded sequences", len(matches)),
		Operation:  "url_decode",
	}}
}

// detectHex checks if input is hexadecimal
func (d *SmartDetector) detectHex(input []byte) []DetectionResult {
	inputStr := strings.TrimSpace(string(input))
	cleaned, hasPrefix := strings.CutPrefix(inputStr, "0x")
	cleaned = strings.NewReplacer(" ", "", ":", "", "-", "").Replace(cleaned)

	if len(cleaned) == 0 || len(cleaned)%2 != 0 || !hexPattern.MatchString(cleaned) {
		return nil
	}

	confidence := 0.8
	if hasPrefix {
		confidence = 0.95
	}
	// Lower confidence if it's all numbers (could be decimal)
	if digitsPattern.MatchString(cleaned) {
		confidence *= 0.6
	}

	return []DetectionResult{{
		Encoding:   "hex",
		Confidence: confidence,
		Reasoning:  "Matches hexadecimal pattern",
		Operation:  "hex_decode",
	}}
}

func isPrintableText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// DecodeAll attempts to decode using all detected encodings. Surrounding
// whitespace is dropped first; the rearranging decoders are position
// sensitive.
func DecodeAll(ctx context.Context, input []byte) ([]DecodeResult, error) {
	input = bytes.TrimSpace(input)
	detector := NewSmartDetector()
	detections, err := detector.Detect(ctx, input)
	if err != nil {
		return nil, err
	}

	results := []DecodeResult{}
	for _, detection := range detections {
		op, exists := GetOperation(detection.Operation)
		if !exists {
			continue
		}

		decoded, err := op.Execute(ctx, input)
		if err != nil {
			results = append(results, DecodeResult{
				Detection: detection,
				Error:     err.Error(),
			})
			continue
		}

		results = append(results, DecodeResult{
			Detection: detection,
			Decoded:   decoded,
			Success:   true,
		})
	}

	return results, nil
}

// DecodeResult represents the result of a decode attempt
type DecodeResult struct {
	Detection DetectionResult `json:"detection"`
	Decoded   []byte          `json:"decoded"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
}
