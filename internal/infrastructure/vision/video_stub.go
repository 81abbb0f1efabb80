//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"
	"os"

	"ocular-torsion/internal/domain/port"
)

// VideoOpener без OpenCV умеет открывать только каталоги с кадрами.
type VideoOpener struct {
	DirFPS float64
}

// NewVideoOpener создаёт открывалку видео-заглушку.
func NewVideoOpener(dirFPS float64) *VideoOpener {
	return &VideoOpener{DirFPS: dirFPS}
}

// Open открывает каталог кадров, для видеофайлов возвращает ошибку.
func (o *VideoOpener) Open(ctx context.Context, path string) (port.FrameSource, error) {
	_ = ctx
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return OpenDir(path, o.DirFPS)
	}
	return nil, errors.New("gocv build tag is not enabled: only frame directories are supported")
}
