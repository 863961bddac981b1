package entity

// Detection is a single object detected in one frame. BBox is
// [x1, y1, x2, y2] in pixel coordinates with x1 < x2 and y1 < y2.
type Detection struct {
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
	BBox       [4]int  `json:"bbox"`
}

// DetectionBatch carries the filtered detections of one processed frame.
type DetectionBatch struct {
	Objects     []Detection `json:"objects"`
	Timestamp   string      `json:"timestamp"`
	FrameWidth  int         `json:"frame_width"`
	FrameHeight int         `json:"frame_height"`
}

// DetectedObject is the reduced form the frontend accumulates during a
// session and sends back on stop for threat assessment.
type DetectedObject struct {
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
}

type RiskBreakdown struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

type ThreatReport struct {
	ThreatLevel      string        `json:"threat_level"`
	ThreatPercentage int           `json:"threat_percentage"`
	RiskBreakdown    RiskBreakdown `json:"risk_breakdown"`
	FlaggedContent   string        `json:"flagged_content"`
	DetectedKeywords []string      `json:"detected_keywords"`
	Summary          string        `json:"summary"`
	Recommendations  []string      `json:"recommendations"`
}
