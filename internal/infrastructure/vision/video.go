//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/port"
)

// VideoOpener открывает видеофайлы через OpenCV, а каталоги как набор кадров.
type VideoOpener struct {
	DirFPS float64 // частота кадров для каталогов изображений
}

// NewVideoOpener создаёт открывалку видео.
func NewVideoOpener(dirFPS float64) *VideoOpener {
	return &VideoOpener{DirFPS: dirFPS}
}

func (o *VideoOpener) Open(ctx context.Context, path string) (port.FrameSource, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return OpenDir(path, o.DirFPS)
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open %s: capture is not opened", path)
	}

	return &VideoSource{
		vc:    vc,
		count: int(vc.Get(gocv.VideoCaptureFrameCount)),
		fps:   vc.Get(gocv.VideoCaptureFPS),
	}, nil
}

// VideoSource читает кадры видео. Последовательное чтение не требует перемотки.
type VideoSource struct {
	mu    sync.Mutex
	vc    *gocv.VideoCapture
	count int
	fps   float64
	next  int
}

func (s *VideoSource) Len() int     { return s.count }
func (s *VideoSource) FPS() float64 { return s.fps }

func (s *VideoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vc.Close()
}

// Frame возвращает кадр в оттенках серого.
func (s *VideoSource) Frame(ctx context.Context, index int) (*mat.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= s.count {
		return nil, fmt.Errorf("%w: index %d of %d", entity.ErrFrameUnreadable, index, s.count)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if index != s.next {
		s.vc.Set(gocv.VideoCapturePosFrames, float64(index))
	}

	img := gocv.NewMat()
	defer img.Close()
	if ok := s.vc.Read(&img); !ok || img.Empty() {
		s.next = -1
		return nil, fmt.Errorf("%w: frame %d", entity.ErrFrameUnreadable, index)
	}
	s.next = index + 1

	gray := gocv.NewMat()
	defer gray.Close()
	if img.Channels() == 1 {
		img.CopyTo(&gray)
	} else {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	}
	return matToDense(gray), nil
}

var _ port.FrameSource = (*VideoSource)(nil)
