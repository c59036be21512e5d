package lamp

import (
	"sync"

	"github.com/sweeney/glosa-predictor/internal/phase"
)

// FakeDriver is a test double that records the phases shown.
type FakeDriver struct {
	mu sync.Mutex

	// Shown contains every status passed to Show, in order.
	Shown []phase.Status

	// Levels holds the current red, amber, green outputs.
	Levels []int

	// ShowError, if set, will be returned by Show.
	ShowError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDriver creates a FakeDriver with all lamps off.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{Levels: []int{0, 0, 0}}
}

// Show records s and updates Levels the way the real driver would.
func (f *FakeDriver) Show(s phase.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ShowError != nil {
		return f.ShowError
	}
	vals, err := levels(s)
	if err != nil {
		return err
	}
	f.Shown = append(f.Shown, s)
	f.Levels = vals
	return nil
}

// Current returns the last status shown, or "" if none.
func (f *FakeDriver) Current() phase.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Shown) == 0 {
		return ""
	}
	return f.Shown[len(f.Shown)-1]
}

// Close turns all lamps off and marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Levels = []int{0, 0, 0}
	f.Closed = true
	return nil
}
