package stream

import (
	"SurveillanceGolang/internal/entity"
)

type AccumulatedObject struct {
	ClassName  string  `json:"class_name" validate:"required"`
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
}

type StopStreamRequest struct {
	AccumulatedObjects []AccumulatedObject `json:"accumulated_objects" validate:"omitempty,dive"`
}

// Objects converts the request payload into the entity form the threat
// analyzer works with.
func (r StopStreamRequest) Objects() []entity.DetectedObject {
	objects := make([]entity.DetectedObject, 0, len(r.AccumulatedObjects))
	for _, obj := range r.AccumulatedObjects {
		objects = append(objects, entity.DetectedObject{
			ClassName:  obj.ClassName,
			Confidence: obj.Confidence,
		})
	}
	return objects
}

type StartStreamResponse struct {
	Status string `json:"status"`
}

type StopStreamResponse struct {
	Status   string              `json:"status"`
	Analysis entity.ThreatReport `json:"analysis"`
}
