package imageops

import (
	"errors"
	"fmt"
)

// ErrDetectionDegenerate is returned when removing detected letterbox bars
// would leave an image with no width or no height.
var ErrDetectionDegenerate = errors.New("letterbox removal would produce an empty image")

type InvalidAspectError struct {
	Ratio float64
}

func (e InvalidAspectError) Error() string {
	return fmt.Sprintf("aspect ratio must be positive, got %g", e.Ratio)
}

type InvalidResolutionError struct {
	Target int
}

func (e InvalidResolutionError) Error() string {
	return fmt.Sprintf("resolution target must be positive, got %d", e.Target)
}
