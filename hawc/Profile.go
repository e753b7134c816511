package hawc

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

const degToSr = math.Pi / 180.0 * math.Pi / 180.0

// Residuals holds the per-analysis-bin model and data around a sky
// position. Plotting is left to the caller.
type Residuals struct {
	Bins       []string
	Model      []float64
	Signal     []float64
	Background []float64
	Total      []float64
	Error      []float64
}

// ResidualsAtPosition evaluates model and data over a disc of the given
// radius around (ra, dec), one entry per analysis bin.
func (h *HAWCLike) ResidualsAtPosition(ra, dec, radius float64) (*Residuals, error) {
	if err := h.fillModelCache(); err != nil {
		return nil, err
	}

	model := h.engine.TopHatExpectedExcesses(ra, dec, radius)
	signal := h.engine.TopHatExcesses(ra, dec, radius)
	background := h.engine.TopHatBackgrounds(ra, dec, radius)

	total := make([]float64, len(signal))
	errs := make([]float64, len(signal))
	for i := range signal {
		total[i] = signal[i] + background[i]
		errs[i] = math.Sqrt(total[i])
	}

	return &Residuals{
		Bins:       append([]string(nil), h.binList...),
		Model:      model,
		Signal:     signal,
		Background: background,
		Total:      total,
		Error:      errs,
	}, nil
}

// RadialProfile is the radial excess profile of data and model around a
// position, averaged over analysis bins.
type RadialProfile struct {
	// Radii are the ring centers, in degrees.
	Radii []float64

	// Excesses are per steradian.
	ExcessModel []float64
	ExcessData  []float64
	ExcessError []float64

	// Bins are the analysis bins that entered the average, sorted
	// numerically.
	Bins []string
}

// RadialProfile computes radial profiles of data-minus-background and model
// excess around (ra, dec). binList selects the analysis bins to average
// over (nil = channels 4 to 10); bins without data are skipped. maxRadius
// bounds the profile and sets the disc used for the per-bin weights.
func (h *HAWCLike) RadialProfile(ra, dec float64, binList []string, maxRadius float64, nRadialBins int) (*RadialProfile, error) {
	if err := h.fillModelCache(); err != nil {
		return nil, err
	}
	if nRadialBins < 1 {
		return nil, fmt.Errorf("need at least one radial bin, got %d", nRadialBins)
	}

	// Sync the engine's internal state before sampling it.
	h.engine.CalcTS(h.fitCommonNorm)

	if binList == nil {
		binList = binRange(4, 10)
	}

	// Restrict to bins present in both the request and the active selection.
	requested := make(map[string]bool, len(binList))
	for _, bin := range binList {
		requested[bin] = true
	}

	good := make([]bool, len(h.binList))
	var usedBins []string
	for i, bin := range h.binList {
		good[i] = requested[bin]
		if good[i] {
			usedBins = append(usedBins, bin)
		}
	}
	if len(usedBins) == 0 {
		return nil, fmt.Errorf("none of the requested bins %v are active", binList)
	}
	sort.Slice(usedBins, func(i, j int) bool {
		a, _ := strconv.Atoi(usedBins[i])
		b, _ := strconv.Atoi(usedBins[j])
		return a < b
	})

	deltaR := maxRadius / float64(nRadialBins)
	radii := make([]float64, nRadialBins)
	for i := range radii {
		radii[i] = deltaR * (float64(i) + 0.5)
	}

	// Top-hat quantities are cumulative over a disc; difference successive
	// discs to get per-ring values.
	area := h.ringMatrix(h.engine.TopHatAreas, ra, dec, radii, deltaR)
	model := h.ringMatrix(h.engine.TopHatExpectedExcesses, ra, dec, radii, deltaR)
	signal := h.ringMatrix(h.engine.TopHatExcesses, ra, dec, radii, deltaR)
	background := h.ringMatrix(h.engine.TopHatBackgrounds, ra, dec, radii, deltaR)

	for i := range area {
		for j := range area[i] {
			area[i][j] *= degToSr
		}
	}

	// Per-bin weights: expected gamma rays over background counts inside
	// the full disc, normalized to sum to one. The weights do not depend on
	// the radius.
	totalModel := filterByMask(h.engine.TopHatExpectedExcesses(ra, dec, maxRadius), good)
	totalBackground := filterByMask(h.engine.TopHatBackgrounds(ra, dec, maxRadius), good)

	weights := make([]float64, len(totalModel))
	weightSum := 0.0
	for i := range weights {
		weights[i] = totalModel[i] / totalBackground[i]
		weightSum += weights[i]
	}
	for i := range weights {
		weights[i] /= weightSum
	}

	profile := &RadialProfile{
		Radii:       radii,
		ExcessModel: make([]float64, nRadialBins),
		ExcessData:  make([]float64, nRadialBins),
		ExcessError: make([]float64, nRadialBins),
		Bins:        usedBins,
	}

	for i := 0; i < nRadialBins; i++ {
		ringArea := filterByMask(area[i], good)
		ringModel := filterByMask(model[i], good)
		ringSignal := filterByMask(signal[i], good)
		ringBackground := filterByMask(background[i], good)

		var data, mod, variance float64
		for j := range ringArea {
			counts := ringSignal[j] + ringBackground[j]

			data += weights[j] * ringSignal[j] / ringArea[j]
			mod += weights[j] * ringModel[j] / ringArea[j]
			variance += counts * weights[j] * weights[j] / (ringArea[j] * ringArea[j])
		}

		profile.ExcessData[i] = data
		profile.ExcessModel[i] = mod
		profile.ExcessError[i] = math.Sqrt(variance)
	}

	return profile, nil
}

// ringMatrix samples a cumulative top-hat quantity at each ring's outer
// radius and converts it to per-ring values, one row per ring, one column
// per analysis bin.
func (h *HAWCLike) ringMatrix(topHat func(ra, dec, radius float64) []float64, ra, dec float64, radii []float64, deltaR float64) [][]float64 {
	rows := make([][]float64, len(radii))
	for i, r := range radii {
		rows[i] = topHat(ra, dec, r+0.5*deltaR)
	}

	for i := len(rows) - 1; i >= 1; i-- {
		for j := range rows[i] {
			rows[i][j] -= rows[i-1][j]
		}
	}

	return rows
}

func filterByMask(values []float64, mask []bool) []float64 {
	filtered := make([]float64, 0, len(values))
	for i, v := range values {
		if i < len(mask) && mask[i] {
			filtered = append(filtered, v)
		}
	}
	return filtered
}
