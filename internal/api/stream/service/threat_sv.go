package streamService

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"SurveillanceGolang/internal/entity"

	"golang.org/x/net/context"
)

const (
	threatAnalysisTimeout = 15 * time.Second

	threatSystemPrompt = "You are a security threat analysis expert. Analyze detected objects and provide comprehensive threat assessments."
)

var threatKeywords = []string{"weapon", "knife", "gun", "scissors"}

// Analyze produces exactly one threat report per invocation: the parsed
// external assessment when the reasoning call succeeds end to end, the local
// heuristic otherwise. Callers never observe an external-service failure.
func (a *threatAnalyzer) Analyze(ctx context.Context, accumulated []entity.DetectedObject) *entity.ThreatReport {
	if len(accumulated) == 0 {
		return emptySessionReport()
	}

	report, err := a.analyzeWithGroq(ctx, accumulated)
	if err != nil {
		a.log.Warnf("Groq analysis failed, using fallback heuristic: %v", err)
		return fallbackReport(accumulated)
	}

	return report
}

func (a *threatAnalyzer) analyzeWithGroq(ctx context.Context, accumulated []entity.DetectedObject) (*entity.ThreatReport, error) {
	c, cancel := context.WithTimeout(ctx, threatAnalysisTimeout)
	defer cancel()

	content, err := a.groq.ChatCompletion(c, threatSystemPrompt, buildThreatPrompt(accumulated))
	if err != nil {
		return nil, err
	}

	return parseThreatResponse(content)
}

func buildThreatPrompt(objects []entity.DetectedObject) string {
	objectList := make([]string, 0, len(objects))
	for _, obj := range objects {
		objectList = append(objectList, fmt.Sprintf("%s (confidence: %.2f)", obj.ClassName, obj.Confidence))
	}

	return fmt.Sprintf(`Analyze the following objects detected in a security video feed and provide a comprehensive threat assessment:

Detected Objects: %s

Please provide a detailed analysis in the following JSON format:
{
    "threat_level": "high/medium/low",
    "threat_percentage": <number 0-100>,
    "risk_breakdown": {
        "high": <percentage>,
        "medium": <percentage>,
        "low": <percentage>
    },
    "flagged_content": "<explanation of concerning objects>",
    "detected_keywords": ["<list of concerning object names>"],
    "summary": "<overall assessment summary>",
    "recommendations": ["<list of recommended actions>"]
}

Focus on security threats, weapons, dangerous objects, and potential risks. Be thorough in your analysis.`,
		strings.Join(objectList, ", "))
}

// parseThreatResponse extracts the JSON object embedded in the model's answer
// text. Models tend to wrap the JSON in prose, so everything outside the
// outermost braces is discarded.
func parseThreatResponse(response string) (*entity.ThreatReport, error) {
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")

	if jsonStart == -1 || jsonEnd == -1 || jsonEnd <= jsonStart {
		return nil, errors.New("cannot find valid JSON in response")
	}

	var report entity.ThreatReport
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), &report); err != nil {
		return nil, fmt.Errorf("malformed JSON in response: %w", err)
	}

	if report.ThreatLevel == "" {
		return nil, errors.New("response JSON is missing threat_level")
	}

	return &report, nil
}

func emptySessionReport() *entity.ThreatReport {
	return &entity.ThreatReport{
		ThreatLevel:      "low",
		ThreatPercentage: 0,
		RiskBreakdown:    entity.RiskBreakdown{High: 0, Medium: 0, Low: 100},
		FlaggedContent:   "No objects detected during the session.",
		DetectedKeywords: []string{},
		Summary:          "No threats detected in the video analysis session.",
		Recommendations:  []string{"Continue regular monitoring", "No immediate action required"},
	}
}

// fallbackReport is the deterministic local heuristic: flag class names
// matching the keyword set and scale the threat linearly, 20% per match.
func fallbackReport(accumulated []entity.DetectedObject) *entity.ThreatReport {
	var matched []string
	for _, obj := range accumulated {
		name := strings.ToLower(obj.ClassName)
		for _, keyword := range threatKeywords {
			if strings.Contains(name, keyword) {
				matched = append(matched, obj.ClassName)
				break
			}
		}
	}

	if len(matched) == 0 {
		return &entity.ThreatReport{
			ThreatLevel:      "low",
			ThreatPercentage: 0,
			RiskBreakdown:    entity.RiskBreakdown{High: 0, Medium: 0, Low: 100},
			FlaggedContent:   "No dangerous objects detected.",
			DetectedKeywords: []string{},
			Summary:          "Low-risk situation based on detected objects.",
			Recommendations:  []string{"Continue monitoring", "No immediate action required"},
		}
	}

	percentage := len(matched) * 20
	if percentage > 100 {
		percentage = 100
	}

	return &entity.ThreatReport{
		ThreatLevel:      "high",
		ThreatPercentage: percentage,
		RiskBreakdown:    entity.RiskBreakdown{High: percentage, Medium: 100 - percentage, Low: 0},
		FlaggedContent:   fmt.Sprintf("Dangerous objects detected: %s.", strings.Join(matched, ", ")),
		DetectedKeywords: matched,
		Summary:          fmt.Sprintf("High-risk situation detected with %d dangerous objects.", len(matched)),
		Recommendations: []string{
			"Issue immediate alert: sharp weapon detected",
			"Alert local law enforcement for potential threat",
			"Discourage any approach, the object could be concealed or used rapidly",
		},
	}
}
