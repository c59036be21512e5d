//go:build !linux

package lamp

import (
	"errors"

	"github.com/sweeney/glosa-predictor/internal/phase"
)

// RealDriver is not available on non-Linux platforms.
type RealDriver struct{}

// NewRealDriver returns an error on non-Linux platforms.
func NewRealDriver(chipName string, pins Pins) (*RealDriver, error) {
	return nil, errors.New("lamp: gpio not supported on this platform (requires Linux)")
}

// Show is not implemented on non-Linux platforms.
func (d *RealDriver) Show(s phase.Status) error {
	return errors.New("lamp: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *RealDriver) Close() error {
	return nil
}
