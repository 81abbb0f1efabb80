package vision

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"

	"ocular-torsion/internal/domain/entity"
	"ocular-torsion/internal/domain/port"
)

// DirSource читает кадры из каталога изображений, отсортированных по имени.
type DirSource struct {
	files []string
	fps   float64
}

// OpenDir открывает каталог с кадрами .png/.jpg/.bmp/.tif.
func OpenDir(dir string, fps float64) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no frames in %s", dir)
	}
	sort.Strings(files)

	return &DirSource{files: files, fps: fps}, nil
}

func (s *DirSource) Len() int     { return len(s.files) }
func (s *DirSource) FPS() float64 { return s.fps }
func (s *DirSource) Close() error { return nil }

// Frame декодирует кадр и переводит его в оттенки серого.
func (s *DirSource) Frame(ctx context.Context, index int) (*mat.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(s.files) {
		return nil, fmt.Errorf("%w: index %d of %d", entity.ErrFrameUnreadable, index, len(s.files))
	}

	f, err := os.Open(s.files[index])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrFrameUnreadable, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", entity.ErrFrameUnreadable, filepath.Base(s.files[index]), err)
	}
	return ToDense(img), nil
}

var _ port.FrameSource = (*DirSource)(nil)
