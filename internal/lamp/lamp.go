// Package lamp drives a three-lamp signal head from predicted phases.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package lamp

import (
	"fmt"

	"github.com/sweeney/glosa-predictor/internal/phase"
)

// Driver shows a signal phase on physical lamps.
type Driver interface {
	// Show lights the lamp for s and turns the others off.
	Show(s phase.Status) error

	// Close turns all lamps off and releases resources.
	Close() error
}

// Pins holds BCM pin numbers for each lamp.
type Pins struct {
	Red   int
	Amber int
	Green int
}

// Default pin assignment (BCM numbering).
const (
	DefaultPinRed   = 17
	DefaultPinAmber = 27
	DefaultPinGreen = 22
)

// DefaultPins returns the default pin assignment.
func DefaultPins() Pins {
	return Pins{Red: DefaultPinRed, Amber: DefaultPinAmber, Green: DefaultPinGreen}
}

// offsets returns the pins in lamp order: red, amber, green.
func (p Pins) offsets() []int {
	return []int{p.Red, p.Amber, p.Green}
}

// levels returns the output level of each lamp (red, amber, green) for s.
func levels(s phase.Status) ([]int, error) {
	switch s {
	case phase.StatusRed:
		return []int{1, 0, 0}, nil
	case phase.StatusAmber:
		return []int{0, 1, 0}, nil
	case phase.StatusGreen:
		return []int{0, 0, 1}, nil
	}
	return nil, fmt.Errorf("lamp: unknown status %q", s)
}
