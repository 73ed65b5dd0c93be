package camera

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// defaultExposureRange is used when the backend cannot report one.
// Matches the common UVC exposure-compensation span.
var defaultExposureRange = ExposureRange{Min: -8, Max: 8}

// VideoDevice is a Device backed by a gocv VideoCapture handle. The
// handle and its scratch Mat are not safe for concurrent use, so all
// calls serialize on one mutex.
type VideoDevice struct {
	mu  sync.Mutex
	vc  *gocv.VideoCapture
	mat gocv.Mat
}

// OpenVideoDevice opens the capture device at the given index. It is
// the OpenFunc used for real hardware.
func OpenVideoDevice(index int) (Device, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("open video capture %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video capture %d did not open", index)
	}
	return &VideoDevice{vc: vc, mat: gocv.NewMat()}, nil
}

// Read returns the next preview frame.
func (d *VideoDevice) Read() (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.vc.Read(&d.mat) || d.mat.Empty() {
		return nil, fmt.Errorf("read frame: no data")
	}
	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

// Still returns a single full-quality frame. Webcams deliver stills
// from the same stream as the preview.
func (d *VideoDevice) Still() (image.Image, error) {
	return d.Read()
}

// ExposureRange reports the supported exposure offsets.
func (d *VideoDevice) ExposureRange() ExposureRange {
	return defaultExposureRange
}

// SetExposure applies an exposure offset through the capture property.
func (d *VideoDevice) SetExposure(v float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vc.Set(gocv.VideoCaptureExposure, v)
	return nil
}

// Close releases the hardware handle.
func (d *VideoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mat.Close()
	return d.vc.Close()
}

// EnumerateLenses probes capture indices and builds the lens table.
// The first device found is treated as the front (user-facing) lens on
// a desktop, the second as the back. Populated once at session
// construction; never re-scanned.
func EnumerateLenses(maxProbe int) []Lens {
	var lenses []Lens
	for i := 0; i < maxProbe; i++ {
		vc, err := gocv.OpenVideoCapture(i)
		if err != nil {
			continue
		}
		opened := vc.IsOpened()
		vc.Close()
		if !opened {
			continue
		}

		direction := DirectionFront
		if len(lenses) > 0 {
			direction = DirectionBack
		}
		lenses = append(lenses, Lens{Index: i, Direction: direction})
	}
	return lenses
}
