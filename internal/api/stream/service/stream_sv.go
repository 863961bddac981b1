package streamService

import (
	"time"

	"SurveillanceGolang/internal/api/stream"
	"SurveillanceGolang/internal/entity"
	"SurveillanceGolang/pkg/log"

	"golang.org/x/net/context"
)

const (
	frameReadTimeout     = 500 * time.Millisecond
	startDrainTimeout    = 1 * time.Second
	stopDrainTimeout     = 2 * time.Second
	batchTimestampLayout = "2006-01-02 15:04:05"
)

// StartStream transitions the session into the streaming state. A still
// running worker from a previous session is signalled to stop and drained
// before the camera is reopened, so at most one worker ever holds the device.
// When that worker refuses to exit within the drain window, the start is
// refused rather than letting a second worker share the device.
func (s *streamService) StartStream(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.workerDone != nil {
		s.streaming.Store(false)
		s.signalWorkerStop()
		select {
		case <-s.workerDone:
			s.workerDone = nil
		case <-time.After(startDrainTimeout):
			s.log.WithFields(log.Fields{
				"timeout_ms": startDrainTimeout.Milliseconds(),
			}).Warn("Previous detection worker still holds the camera")
			return stream.ErrCameraUnavailable
		}
	}

	if err := s.camera.Open(); err != nil {
		s.log.Errorf("Failed to open camera: %v", err)
		return stream.ErrCameraUnavailable
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.workerStop = stop
	s.workerDone = done
	s.streaming.Store(true)

	go s.runWorker(stop, done)

	s.log.Info("Streaming started")
	return nil
}

// StopStream signals the worker to exit, waits for it with a bounded timeout
// and runs the threat assessment over the session's accumulated detections.
// Safe to call when no worker is running.
func (s *streamService) StopStream(ctx context.Context, accumulated []entity.DetectedObject) (*entity.ThreatReport, error) {
	s.mu.Lock()
	s.streaming.Store(false)

	if s.workerDone != nil {
		s.signalWorkerStop()
		select {
		case <-s.workerDone:
			s.workerDone = nil
		case <-time.After(stopDrainTimeout):
			s.log.WithFields(log.Fields{
				"timeout_ms": stopDrainTimeout.Milliseconds(),
			}).Warn("Detection worker did not stop in time, forcing camera release")
			s.camera.Close()
			// workerDone stays set so a later start still waits for this
			// worker instead of launching a second one next to it.
		}
	}
	s.mu.Unlock()

	s.log.WithFields(log.Fields{
		"accumulated_objects": len(accumulated),
	}).Info("Streaming stopped, running threat analysis")

	return s.analyzer.Analyze(ctx, accumulated), nil
}

func (s *streamService) IsStreaming() bool {
	return s.streaming.Load()
}

// signalWorkerStop closes the current worker's stop channel. Idempotent;
// callers must hold s.mu.
func (s *streamService) signalWorkerStop() {
	if s.workerStop != nil {
		close(s.workerStop)
		s.workerStop = nil
	}
}

// runWorker is the capture and inference loop. Each worker owns its stop
// channel, so a signal meant for this worker can never be absorbed by a
// later one. The camera is released on every exit path.
func (s *streamService) runWorker(stop <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := s.camera.Close(); err != nil {
			s.log.Errorf("Failed to release camera: %v", err)
		}
	}()

	s.log.Info("Detection worker started")

	for {
		select {
		case <-stop:
			s.log.Info("Detection worker stopped")
			return
		default:
		}

		frame, err := s.camera.ReadFrame(frameReadTimeout)
		if err != nil {
			// No frame yet; the bounded read doubles as the stop check
			// interval, so a stalled device cannot wedge the worker.
			continue
		}

		objects, err := s.detector.DetectObjects(frame.Data)
		if err != nil {
			s.log.Debugf("Inference failed for frame: %v", err)
			continue
		}

		batch := &entity.DetectionBatch{
			Objects:     filterObjects(objects, s.threshold),
			Timestamp:   time.Now().Format(batchTimestampLayout),
			FrameWidth:  frame.Width,
			FrameHeight: frame.Height,
		}

		s.hub.Enqueue(batch)
	}
}

// filterObjects keeps detections strictly above the confidence threshold.
func filterObjects(objects []entity.Detection, threshold float64) []entity.Detection {
	filtered := make([]entity.Detection, 0, len(objects))
	for _, obj := range objects {
		if obj.Confidence > threshold {
			filtered = append(filtered, obj)
		}
	}
	return filtered
}
