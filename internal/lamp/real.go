//go:build linux

package lamp

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/glosa-predictor/internal/phase"
)

// RealDriver drives lamps through the Linux GPIO character device.
type RealDriver struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
}

// NewRealDriver requests the three lamp pins on chipName as outputs,
// initially all off.
func NewRealDriver(chipName string, pins Pins) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	lines, err := chip.RequestLines(pins.offsets(), gpiocdev.AsOutput(0, 0, 0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request lamp pins %v: %w", pins.offsets(), err)
	}

	return &RealDriver{
		chip:  chip,
		lines: lines,
	}, nil
}

// Show lights exactly one lamp for s.
func (d *RealDriver) Show(s phase.Status) error {
	vals, err := levels(s)
	if err != nil {
		return err
	}
	if err := d.lines.SetValues(vals); err != nil {
		return fmt.Errorf("set lamp pins: %w", err)
	}
	return nil
}

// Close turns every lamp off, returns the pins to inputs with pull-down
// (matching Pi boot defaults) and releases the chip.
func (d *RealDriver) Close() error {
	var errs []error

	if d.lines != nil {
		if err := d.lines.SetValues([]int{0, 0, 0}); err != nil {
			errs = append(errs, fmt.Errorf("turn lamps off: %w", err))
		}
		if err := d.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure lamp pins: %w", err))
		}
		if err := d.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close lamp pins: %w", err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
