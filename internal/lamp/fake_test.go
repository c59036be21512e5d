package lamp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/glosa-predictor/internal/phase"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		status phase.Status
		want   []int
	}{
		{phase.StatusRed, []int{1, 0, 0}},
		{phase.StatusAmber, []int{0, 1, 0}},
		{phase.StatusGreen, []int{0, 0, 1}},
	}
	for _, tt := range tests {
		got, err := levels(tt.status)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "status %s", tt.status)
	}

	_, err := levels("BLUE")
	assert.Error(t, err)
}

func TestDefaultPins(t *testing.T) {
	p := DefaultPins()
	assert.Equal(t, []int{17, 27, 22}, p.offsets())
}

func TestFakeDriverShow(t *testing.T) {
	f := NewFakeDriver()
	assert.Equal(t, phase.Status(""), f.Current())
	assert.Equal(t, []int{0, 0, 0}, f.Levels)

	require.NoError(t, f.Show(phase.StatusGreen))
	require.NoError(t, f.Show(phase.StatusAmber))
	require.NoError(t, f.Show(phase.StatusRed))

	assert.Equal(t, []phase.Status{phase.StatusGreen, phase.StatusAmber, phase.StatusRed}, f.Shown)
	assert.Equal(t, phase.StatusRed, f.Current())
	assert.Equal(t, []int{1, 0, 0}, f.Levels)
}

func TestFakeDriverRejectsUnknownStatus(t *testing.T) {
	f := NewFakeDriver()
	require.NoError(t, f.Show(phase.StatusGreen))

	assert.Error(t, f.Show("BLUE"))
	assert.Equal(t, phase.StatusGreen, f.Current(), "failed Show leaves lamps unchanged")
	assert.Equal(t, []int{0, 0, 1}, f.Levels)
}

func TestFakeDriverError(t *testing.T) {
	f := NewFakeDriver()
	f.ShowError = errors.New("simulated error")

	assert.EqualError(t, f.Show(phase.StatusRed), "simulated error")
	assert.Empty(t, f.Shown)
}

func TestFakeDriverClose(t *testing.T) {
	f := NewFakeDriver()
	require.NoError(t, f.Show(phase.StatusRed))
	assert.False(t, f.Closed)

	require.NoError(t, f.Close())
	assert.True(t, f.Closed)
	assert.Equal(t, []int{0, 0, 0}, f.Levels)
}

func TestDriversImplementInterface(t *testing.T) {
	var _ Driver = (*FakeDriver)(nil)
	var _ Driver = (*RealDriver)(nil)
}
