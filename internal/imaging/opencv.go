package imaging

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// maxSide guards against decoding bombs before the resize.
const maxSide = 32768

// decodeOpenCV reads path with IMRead and resizes with linear interpolation.
func decodeOpenCV(path string, maxDim int) (image.Image, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	defer mat.Close()

	if err := validateMat(&mat, "IMRead"); err != nil {
		return nil, fmt.Errorf("opencv could not read %s: %w", path, err)
	}

	w, h := FitSize(mat.Cols(), mat.Rows(), maxDim)
	if w == mat.Cols() && h == mat.Rows() {
		return mat.ToImage()
	}

	resized := gocv.NewMat()
	defer resized.Close()

	gocv.Resize(mat, &resized, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
	if err := validateMat(&resized, "Resize"); err != nil {
		return nil, fmt.Errorf("opencv resize failed for %s: %w", path, err)
	}
	return resized.ToImage()
}

func validateMat(mat *gocv.Mat, operation string) error {
	if mat.Empty() {
		return fmt.Errorf("%w: Mat is empty after %s", ErrEmptyImage, operation)
	}
	if err := validateDimensions(mat.Cols(), mat.Rows(), operation); err != nil {
		return err
	}

	// ToImage only understands 8-bit Mats
	switch mat.Type() {
	case gocv.MatTypeCV8UC1, gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		return nil
	default:
		return fmt.Errorf("unsupported MatType %d after %s", int(mat.Type()), operation)
	}
}

func validateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d after %s", ErrEmptyImage, width, height, operation)
	}
	if width > maxSide || height > maxSide {
		return fmt.Errorf("dimensions %dx%d exceed maximum size after %s", width, height, operation)
	}
	return nil
}
