package streamService

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"SurveillanceGolang/internal/entity"

	"github.com/sirupsen/logrus"
)

type fakeGroq struct {
	content string
	err     error
	calls   int
	prompts []string
}

func (f *fakeGroq) ChatCompletion(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	if f.err != nil {
		return "", f.err
	}
	return f.content, nil
}

func newTestAnalyzer(g *fakeGroq) IThreatAnalyzer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewThreatAnalyzer(logger, g)
}

func TestAnalyzeEmptySessionSkipsExternalCall(t *testing.T) {
	g := &fakeGroq{}
	analyzer := newTestAnalyzer(g)

	report := analyzer.Analyze(context.Background(), nil)

	if g.calls != 0 {
		t.Errorf("expected no external call for empty session, got %d", g.calls)
	}
	if report.ThreatLevel != "low" {
		t.Errorf("threat_level = %q, want low", report.ThreatLevel)
	}
	if report.ThreatPercentage != 0 {
		t.Errorf("threat_percentage = %d, want 0", report.ThreatPercentage)
	}
	want := entity.RiskBreakdown{High: 0, Medium: 0, Low: 100}
	if report.RiskBreakdown != want {
		t.Errorf("risk_breakdown = %+v, want %+v", report.RiskBreakdown, want)
	}
}

func TestAnalyzeFallbackSingleKnife(t *testing.T) {
	g := &fakeGroq{err: errors.New("service unavailable")}
	analyzer := newTestAnalyzer(g)

	report := analyzer.Analyze(context.Background(), []entity.DetectedObject{
		{ClassName: "knife", Confidence: 0.9},
	})

	if g.calls != 1 {
		t.Errorf("expected one external attempt, got %d", g.calls)
	}
	if report.ThreatLevel != "high" {
		t.Errorf("threat_level = %q, want high", report.ThreatLevel)
	}
	if report.ThreatPercentage != 20 {
		t.Errorf("threat_percentage = %d, want 20", report.ThreatPercentage)
	}
	if len(report.DetectedKeywords) != 1 || report.DetectedKeywords[0] != "knife" {
		t.Errorf("detected_keywords = %v, want [knife]", report.DetectedKeywords)
	}
}

func TestAnalyzeFallbackTwoMatches(t *testing.T) {
	g := &fakeGroq{err: errors.New("service unavailable")}
	analyzer := newTestAnalyzer(g)

	report := analyzer.Analyze(context.Background(), []entity.DetectedObject{
		{ClassName: "knife", Confidence: 0.9},
		{ClassName: "handgun", Confidence: 0.8},
	})

	if report.ThreatPercentage != 40 {
		t.Errorf("threat_percentage = %d, want 40", report.ThreatPercentage)
	}
	want := entity.RiskBreakdown{High: 40, Medium: 60, Low: 0}
	if report.RiskBreakdown != want {
		t.Errorf("risk_breakdown = %+v, want %+v", report.RiskBreakdown, want)
	}
}

func TestAnalyzeFallbackCapsAtHundred(t *testing.T) {
	g := &fakeGroq{err: errors.New("service unavailable")}
	analyzer := newTestAnalyzer(g)

	objects := make([]entity.DetectedObject, 7)
	for i := range objects {
		objects[i] = entity.DetectedObject{ClassName: "gun", Confidence: 0.95}
	}

	report := analyzer.Analyze(context.Background(), objects)

	if report.ThreatPercentage != 100 {
		t.Errorf("threat_percentage = %d, want 100", report.ThreatPercentage)
	}
	want := entity.RiskBreakdown{High: 100, Medium: 0, Low: 0}
	if report.RiskBreakdown != want {
		t.Errorf("risk_breakdown = %+v, want %+v", report.RiskBreakdown, want)
	}
}

func TestAnalyzeFallbackCaseInsensitiveSubstring(t *testing.T) {
	g := &fakeGroq{err: errors.New("service unavailable")}
	analyzer := newTestAnalyzer(g)

	report := analyzer.Analyze(context.Background(), []entity.DetectedObject{
		{ClassName: "Kitchen Knife", Confidence: 0.7},
		{ClassName: "person", Confidence: 0.99},
	})

	if report.ThreatLevel != "high" {
		t.Errorf("threat_level = %q, want high", report.ThreatLevel)
	}
	if len(report.DetectedKeywords) != 1 || report.DetectedKeywords[0] != "Kitchen Knife" {
		t.Errorf("detected_keywords = %v, want [Kitchen Knife]", report.DetectedKeywords)
	}
}

func TestAnalyzeFallbackNoMatches(t *testing.T) {
	g := &fakeGroq{err: errors.New("service unavailable")}
	analyzer := newTestAnalyzer(g)

	report := analyzer.Analyze(context.Background(), []entity.DetectedObject{
		{ClassName: "person", Confidence: 0.9},
		{ClassName: "bicycle", Confidence: 0.6},
	})

	if report.ThreatLevel != "low" {
		t.Errorf("threat_level = %q, want low", report.ThreatLevel)
	}
	if report.ThreatPercentage != 0 {
		t.Errorf("threat_percentage = %d, want 0", report.ThreatPercentage)
	}
}

func TestAnalyzeParsesEmbeddedJSON(t *testing.T) {
	g := &fakeGroq{content: `Here is my assessment:
{
  "threat_level": "medium",
  "threat_percentage": 55,
  "risk_breakdown": {"high": 30, "medium": 50, "low": 20},
  "flagged_content": "A scissors was visible near the entrance.",
  "detected_keywords": ["scissors"],
  "summary": "Moderate risk.",
  "recommendations": ["Review footage"]
}
Let me know if you need more detail.`}
	analyzer := newTestAnalyzer(g)

	report := analyzer.Analyze(context.Background(), []entity.DetectedObject{
		{ClassName: "scissors", Confidence: 0.8},
	})

	if report.ThreatLevel != "medium" {
		t.Errorf("threat_level = %q, want medium (parsed from response)", report.ThreatLevel)
	}
	if report.ThreatPercentage != 55 {
		t.Errorf("threat_percentage = %d, want 55", report.ThreatPercentage)
	}
	if len(report.Recommendations) != 1 || report.Recommendations[0] != "Review footage" {
		t.Errorf("recommendations = %v, want [Review footage]", report.Recommendations)
	}
}

func TestAnalyzeMalformedResponseTriggersFallback(t *testing.T) {
	g := &fakeGroq{content: "I cannot produce structured output right now."}
	analyzer := newTestAnalyzer(g)

	report := analyzer.Analyze(context.Background(), []entity.DetectedObject{
		{ClassName: "knife", Confidence: 0.9},
	})

	// The response has no JSON object, so the local heuristic must decide.
	if report.ThreatLevel != "high" || report.ThreatPercentage != 20 {
		t.Errorf("expected fallback high/20, got %s/%d", report.ThreatLevel, report.ThreatPercentage)
	}
}

func TestPromptListsEveryDetection(t *testing.T) {
	g := &fakeGroq{err: errors.New("irrelevant")}
	analyzer := newTestAnalyzer(g)

	analyzer.Analyze(context.Background(), []entity.DetectedObject{
		{ClassName: "person", Confidence: 0.91},
		{ClassName: "backpack", Confidence: 0.42},
	})

	if len(g.prompts) != 1 {
		t.Fatalf("expected one prompt, got %d", len(g.prompts))
	}
	prompt := g.prompts[0]
	if !strings.Contains(prompt, "person (confidence: 0.91)") {
		t.Errorf("prompt is missing first detection: %q", prompt)
	}
	if !strings.Contains(prompt, "backpack (confidence: 0.42)") {
		t.Errorf("prompt is missing second detection: %q", prompt)
	}
}

func TestParseThreatResponseErrors(t *testing.T) {
	cases := []struct {
		name     string
		response string
	}{
		{"no braces", "plain text"},
		{"unbalanced", "prefix } then { suffix"},
		{"invalid json", "{ not json }"},
		{"missing threat level", `{"threat_percentage": 10}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseThreatResponse(tc.response); err == nil {
				t.Errorf("parseThreatResponse(%q) expected error", tc.response)
			}
		})
	}
}
