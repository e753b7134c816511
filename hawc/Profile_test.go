package hawc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearTopHatEngine returns cumulative top-hat quantities that grow
// linearly with the disc radius, so every ring carries the same amount.
func linearTopHatEngine() *fakeEngine {
	engine := newFakeEngine()
	engine.topHat = func(kind string, radius float64) []float64 {
		switch kind {
		case "area":
			return []float64{radius, 2 * radius}
		case "model":
			return []float64{10 * radius, 20 * radius}
		case "signal":
			return []float64{12 * radius, 24 * radius}
		case "background":
			return []float64{radius, 2 * radius}
		}
		return nil
	}
	return engine
}

func TestRadialProfile(t *testing.T) {
	engine := linearTopHatEngine()
	plugin, _ := newTestPlugin(t, engine)
	plugin.SetBinList([]string{"0", "1"})
	require.NoError(t, plugin.SetModel(&fakeModel{}))

	profile, err := plugin.RadialProfile(83.5, 22.0, []string{"1", "0"}, 2.0, 2)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.5, 1.5}, profile.Radii)
	assert.Equal(t, []string{"0", "1"}, profile.Bins)

	// Hand-computed: ring areas are [1, 2] deg^2 per bin and ring, model
	// excesses [10, 20], signal [12, 24], background [1, 2]. The weights
	// (model over background at the full disc) normalize to [0.5, 0.5], so
	// every ring averages to 12/sr of data excess and 10/sr of model.
	sr := math.Pi / 180.0 * math.Pi / 180.0
	expectedData := 12.0 / sr
	expectedModel := 10.0 / sr
	expectedError := math.Sqrt(13*0.25+26*0.25/4.0) / sr

	for i := range profile.Radii {
		assert.InDelta(t, expectedData, profile.ExcessData[i], expectedData*1e-12)
		assert.InDelta(t, expectedModel, profile.ExcessModel[i], expectedModel*1e-12)
		assert.InDelta(t, expectedError, profile.ExcessError[i], expectedError*1e-12)
	}
}

func TestRadialProfileSkipsInactiveBins(t *testing.T) {
	engine := linearTopHatEngine()
	plugin, _ := newTestPlugin(t, engine)
	plugin.SetBinList([]string{"0", "1"})
	require.NoError(t, plugin.SetModel(&fakeModel{}))

	profile, err := plugin.RadialProfile(83.5, 22.0, []string{"1", "7"}, 2.0, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, profile.Bins)
}

func TestRadialProfileDefaultBins(t *testing.T) {
	engine := newFakeEngine()
	engine.topHat = func(string, float64) []float64 {
		values := make([]float64, 10)
		for i := range values {
			values[i] = float64(i + 1)
		}
		return values
	}
	plugin, _ := newTestPlugin(t, engine)
	require.NoError(t, plugin.SetModel(&fakeModel{}))

	// Default request is channels 4-10; only 4-9 are active.
	profile, err := plugin.RadialProfile(83.5, 22.0, nil, 1.0, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"4", "5", "6", "7", "8", "9"}, profile.Bins)
}

func TestRadialProfileRejectsBadArguments(t *testing.T) {
	plugin, _ := newTestPlugin(t, linearTopHatEngine())
	require.NoError(t, plugin.SetModel(&fakeModel{}))

	_, err := plugin.RadialProfile(83.5, 22.0, nil, 1.0, 0)
	assert.ErrorContains(t, err, "radial bin")

	_, err = plugin.RadialProfile(83.5, 22.0, []string{"99"}, 1.0, 10)
	assert.ErrorContains(t, err, "none of the requested bins")
}

func TestRadialProfileWithoutModel(t *testing.T) {
	plugin, _ := newTestPlugin(t, linearTopHatEngine())

	_, err := plugin.RadialProfile(83.5, 22.0, nil, 1.0, 10)
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestResidualsAtPosition(t *testing.T) {
	engine := linearTopHatEngine()
	plugin, _ := newTestPlugin(t, engine)
	plugin.SetBinList([]string{"0", "1"})
	require.NoError(t, plugin.SetModel(&fakeModel{}))

	residuals, err := plugin.ResidualsAtPosition(83.5, 22.0, 0.5)
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1"}, residuals.Bins)
	assert.Equal(t, []float64{5, 10}, residuals.Model)
	assert.Equal(t, []float64{6, 12}, residuals.Signal)
	assert.Equal(t, []float64{0.5, 1}, residuals.Background)
	assert.Equal(t, []float64{6.5, 13}, residuals.Total)
	assert.InDelta(t, math.Sqrt(6.5), residuals.Error[0], 1e-12)
	assert.InDelta(t, math.Sqrt(13), residuals.Error[1], 1e-12)
}

func TestResidualsWithoutModel(t *testing.T) {
	plugin, _ := newTestPlugin(t, linearTopHatEngine())

	_, err := plugin.ResidualsAtPosition(83.5, 22.0, 0.5)
	assert.ErrorIs(t, err, ErrNoModel)
}
