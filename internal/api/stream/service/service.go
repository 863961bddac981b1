package streamService

import (
	"strconv"
	"sync"
	"sync/atomic"

	"SurveillanceGolang/internal/entity"
	"SurveillanceGolang/pkg/camera"
	"SurveillanceGolang/pkg/detector"
	"SurveillanceGolang/pkg/groq"
	"SurveillanceGolang/pkg/hub"
	"SurveillanceGolang/pkg/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IStreamService interface {
	StartStream(ctx context.Context) error
	StopStream(ctx context.Context, accumulated []entity.DetectedObject) (*entity.ThreatReport, error)
	IsStreaming() bool
}

type IThreatAnalyzer interface {
	Analyze(ctx context.Context, accumulated []entity.DetectedObject) *entity.ThreatReport
}

type streamService struct {
	log       *logrus.Logger
	camera    camera.IFrameSource
	detector  detector.IDetector
	hub       hub.IBroadcastHub
	analyzer  IThreatAnalyzer
	threshold float64

	mu         sync.Mutex
	streaming  atomic.Bool
	workerStop chan struct{}
	workerDone chan struct{}
}

func New(
	logger *logrus.Logger,
	frameSource camera.IFrameSource,
	objectDetector detector.IDetector,
	broadcastHub hub.IBroadcastHub,
	analyzer IThreatAnalyzer,
) IStreamService {
	return &streamService{
		log:       logger,
		camera:    frameSource,
		detector:  objectDetector,
		hub:       broadcastHub,
		analyzer:  analyzer,
		threshold: confidenceThreshold(),
	}
}

func confidenceThreshold() float64 {
	raw := utils.Env("CONFIDENCE_THRESHOLD", "0.4")
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0.4
	}
	return threshold
}

type threatAnalyzer struct {
	log  *logrus.Logger
	groq groq.IGroq
}

func NewThreatAnalyzer(logger *logrus.Logger, groqClient groq.IGroq) IThreatAnalyzer {
	return &threatAnalyzer{
		log:  logger,
		groq: groqClient,
	}
}
