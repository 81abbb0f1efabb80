package entity

import "errors"

var (
	// ErrNoPupil — на кадре не найдена область зрачка после порогового преобразования.
	ErrNoPupil = errors.New("no pupil region found")

	// ErrGeometryDomain — геометрическая коррекция вышла за область определения.
	ErrGeometryDomain = errors.New("geometric correction out of domain")

	// ErrInvalidSettings — параметры анализа несовместимы.
	ErrInvalidSettings = errors.New("invalid analysis settings")

	// ErrFrameUnreadable — кадр видео не удалось прочитать.
	ErrFrameUnreadable = errors.New("frame unreadable")

	// ErrResultNotFound — результат анализа не найден в хранилище.
	ErrResultNotFound = errors.New("torsion result not found")
)
