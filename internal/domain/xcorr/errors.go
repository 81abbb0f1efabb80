package xcorr

import "errors"

var (
	// ErrBelowThreshold — ни один коэффициент в диапазоне поиска не превысил порог.
	ErrBelowThreshold = errors.New("all correlations below threshold")

	// ErrLackingInterpPoints — для интерполяции нужно не меньше четырёх точек.
	ErrLackingInterpPoints = errors.New("not enough points to interpolate")

	// ErrLengthMismatch — размеры сравниваемых изображений не совпадают.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrInvalidParameter — параметры поиска несовместимы.
	ErrInvalidParameter = errors.New("invalid correlation parameter")
)
