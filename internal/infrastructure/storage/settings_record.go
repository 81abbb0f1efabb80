package storage

import (
	"fmt"

	"ocular-torsion/internal/domain/entity"
)

// settingsRecord хранит настройки прогона в JSON.
type settingsRecord struct {
	WindowRadius        float64                  `json:"window_radius"`
	Mode                string                   `json:"torsion_mode"`
	Resolution          float64                  `json:"resolution"`
	Threshold           float64                  `json:"threshold"`
	MaxAngle            float64                  `json:"max_angle"`
	Transform           string                   `json:"transform_mode"`
	Feature             *entity.Point            `json:"feature,omitempty"`
	WindowTheta         float64                  `json:"window_theta,omitempty"`
	SegmentTheta        float64                  `json:"segment_theta,omitempty"`
	Occlusion           *entity.OcclusionPoints  `json:"occlusion,omitempty"`
	StartFrame          int                      `json:"start_frame"`
	EndFrame            int                      `json:"end_frame"`
	ReferenceFrame      int                      `json:"reference_frame"`
	PupilThreshold      float64                  `json:"pupil_threshold"`
	EyeRadius           float64                  `json:"eye_radius"`
	GeometricCorrection bool                     `json:"geometric_correction"`
	Geometry            entity.GeometryConstants `json:"geometry"`
}

func encodeSettings(s entity.AnalysisSettings) settingsRecord {
	rec := settingsRecord{
		WindowRadius:        s.WindowRadius,
		Mode:                string(s.Correlation.Mode),
		Resolution:          s.Correlation.Resolution,
		Threshold:           s.Correlation.Threshold,
		MaxAngle:            s.Correlation.MaxAngle,
		StartFrame:          s.StartFrame,
		EndFrame:            s.EndFrame,
		ReferenceFrame:      s.ReferenceFrame,
		PupilThreshold:      s.PupilThreshold,
		EyeRadius:           s.EyeRadius,
		GeometricCorrection: s.GeometricCorrection,
		Geometry:            s.Geometry,
	}

	switch m := s.Transform.(type) {
	case entity.FullTransform:
		rec.Transform = m.Name()
		rec.Occlusion = m.Occlusion
	case entity.SubsetTransform:
		rec.Transform = m.Name()
		rec.Feature = &m.Feature
		rec.WindowTheta = m.WindowTheta
		rec.SegmentTheta = m.SegmentTheta
	case entity.AlternateTransform:
		rec.Transform = m.Name()
		rec.Feature = &m.Feature
		rec.WindowTheta = m.WindowTheta
	}
	return rec
}

func (rec settingsRecord) decode() (entity.AnalysisSettings, error) {
	s := entity.AnalysisSettings{
		WindowRadius: rec.WindowRadius,
		Correlation: entity.CorrelationConfig{
			Mode:       entity.TorsionMode(rec.Mode),
			Resolution: rec.Resolution,
			Threshold:  rec.Threshold,
			MaxAngle:   rec.MaxAngle,
		},
		StartFrame:          rec.StartFrame,
		EndFrame:            rec.EndFrame,
		ReferenceFrame:      rec.ReferenceFrame,
		PupilThreshold:      rec.PupilThreshold,
		EyeRadius:           rec.EyeRadius,
		GeometricCorrection: rec.GeometricCorrection,
		Geometry:            rec.Geometry,
	}

	var feature entity.Point
	if rec.Feature != nil {
		feature = *rec.Feature
	}

	switch rec.Transform {
	case entity.FullTransform{}.Name():
		s.Transform = entity.FullTransform{Occlusion: rec.Occlusion}
	case entity.SubsetTransform{}.Name():
		s.Transform = entity.SubsetTransform{Feature: feature, WindowTheta: rec.WindowTheta, SegmentTheta: rec.SegmentTheta}
	case entity.AlternateTransform{}.Name():
		s.Transform = entity.AlternateTransform{Feature: feature, WindowTheta: rec.WindowTheta}
	default:
		return entity.AnalysisSettings{}, fmt.Errorf("%w: stored transform mode %q", entity.ErrInvalidSettings, rec.Transform)
	}
	return s, nil
}
