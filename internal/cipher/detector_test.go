package cipher

import (
	"context"
	"testing"

	"github.com/RowanDark/postparam"
)

func TestSmartDetector(t *testing.T) {
	tests := []struct {
		name             string
		input            string
		expectedEncoding string
		minConfidence    float64
	}{
		{
			name:             "base64 text",
			input:            "aGVsbG8gd29ybGQ=",
			expectedEncoding: "base64",
			minConfidence:    0.85,
		},
		{
			name:             "post-param with leading padding",
			input:            "=G8sbGVa",
			expectedEncoding: "postparam",
			minConfidence:    0.9,
		},
		{
			name:             "post-param double padding",
			input:            "=Q=kImxvcFdsIG8sbGVS",
			expectedEncoding: "postparam",
			minConfidence:    0.9,
		},
		{
			name:             "url encoded",
			input:            "%3DA%3DzdGVd",
			expectedEncoding: "url-encoded",
			minConfidence:    0.7,
		},
		{
			name:             "hex with prefix",
			input:            "0x48656c6c6f",
			expectedEncoding: "hex",
			minConfidence:    0.9,
		},
	}

	detector := NewSmartDetector()
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := detector.Detect(ctx, []byte(tt.input))
			if err != nil {
				t.Fatalf("detection failed: %v", err)
			}
			if len(results) == 0 {
				t.Fatal("expected at least one detection result")
			}

			top := results[0]
			if top.Encoding != tt.expectedEncoding {
				t.Errorf("expected encoding %s, got %s", tt.expectedEncoding, top.Encoding)
			}
			if top.Confidence < tt.minConfidence {
				t.Errorf("expected confidence >= %.2f, got %.2f", tt.minConfidence, top.Confidence)
			}
		})
	}
}

func TestDetectorSeparatesPlainFromObfuscated(t *testing.T) {
	detector := NewSmartDetector()
	ctx := context.Background()

	for _, text := range []string{"M", "Ma", "hello", "test", "Hello, World!", "\U0001F600"} {
		plain := postparam.Encode(text)
		obfuscated := postparam.EncodePostParam(text)

		if !LooksLikeBase64(plain) {
			t.Errorf("%q should look like base64", plain)
		}
		if LooksLikeBase64(obfuscated) {
			t.Errorf("%q should not look like base64", obfuscated)
		}

		results, err := detector.Detect(ctx, []byte(obfuscated))
		if err != nil {
			t.Fatalf("detect %q: %v", obfuscated, err)
		}
		for _, r := range results {
			if r.Encoding == "base64" {
				t.Errorf("%q detected as plain base64", obfuscated)
			}
		}
		if len(results) == 0 || results[0].Encoding != "postparam" {
			t.Errorf("%q: expected postparam first, got %+v", obfuscated, results)
		}
	}
}

func TestLooksLikeBase64(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"TWFu", true},
		{"TWE=", true},
		{"  TQ==  ", true},
		{"TWF", false},
		{"=Q=T", false},
		{"not base64!", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := LooksLikeBase64(tt.input); got != tt.want {
			t.Errorf("LooksLikeBase64(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDetectorNonPrintableBase64(t *testing.T) {
	results, err := NewSmartDetector().Detect(context.Background(), []byte("AQI="))
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	if len(results) != 1 || results[0].Encoding != "base64" {
		t.Fatalf("expected a single base64 result, got %+v", results)
	}
	if results[0].Confidence != 0.5 {
		t.Errorf("expected reduced confidence, got %.2f", results[0].Confidence)
	}
}

func TestDetectorDecimalDigitsLowerHexConfidence(t *testing.T) {
	results, err := NewSmartDetector().Detect(context.Background(), []byte("123456"))
	if err != nil {
		t.Fatalf("detection failed: %v", err)
	}
	for _, r := range results {
		if r.Encoding == "hex" && r.Confidence >= 0.8 {
			t.Errorf("expected lowered hex confidence for digits, got %.2f", r.Confidence)
		}
	}
}

func TestDetectorErrors(t *testing.T) {
	detector := NewSmartDetector()
	if _, err := detector.Detect(context.Background(), nil); err == nil {
		t.Error("expected error for empty input")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := detector.Detect(ctx, []byte("TWFu")); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestSupportedEncodings(t *testing.T) {
	encodings := NewSmartDetector().SupportedEncodings()
	for _, want := range []string{"base64", "postparam", "url-encoded", "hex"} {
		found := false
		for _, enc := range encodings {
			if enc == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %s in supported encodings", want)
		}
	}
}

func TestDecodeAll(t *testing.T) {
	ctx := context.Background()

	results, err := DecodeAll(ctx, []byte("  =G8sbGVa\n"))
	if err != nil {
		t.Fatalf("DecodeAll failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if !results[0].Success || string(results[0].Decoded) != "hello" {
		t.Errorf("expected hello, got %+v", results[0])
	}

	results, err = DecodeAll(ctx, []byte("%3DA%3DzdGVd"))
	if err != nil {
		t.Fatalf("DecodeAll failed: %v", err)
	}
	if len(results) == 0 || string(results[0].Decoded) != "=A=zdGVd" {
		t.Errorf("expected url decoded payload, got %+v", results)
	}

	if _, err := DecodeAll(ctx, []byte("   ")); err == nil {
		t.Error("expected error for blank input")
	}
}
