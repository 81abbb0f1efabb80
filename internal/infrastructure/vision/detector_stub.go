//go:build !gocv
// +build !gocv

package vision

import "ocular-torsion/internal/domain/port"

// NewPupilDetector создаёт детектор без OpenCV.
func NewPupilDetector() port.PupilDetector {
	return NewThresholdDetector()
}
