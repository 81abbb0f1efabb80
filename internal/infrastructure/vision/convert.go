package vision

import (
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ToDense переводит изображение в матрицу яркостей 0..255.
func ToDense(img image.Image) *mat.Dense {
	b := img.Bounds()
	m := mat.NewDense(b.Dy(), b.Dx(), nil)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := m.RawRowView(y - b.Min.Y)
		for x := b.Min.X; x < b.Max.X; x++ {
			row[x-b.Min.X] = float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
		}
	}
	return m
}

// ToGray переводит матрицу яркостей в 8-битное изображение с насыщением.
func ToGray(m mat.Matrix) *image.Gray {
	rows, cols := m.Dims()
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := math.Round(m.At(i, j))
			img.Pix[i*img.Stride+j] = uint8(math.Max(0, math.Min(255, v)))
		}
	}
	return img
}
