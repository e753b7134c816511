package hawc

import (
	"errors"
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/reaandrew/gammakit/utils"
)

// InstrumentName identifies the observatory this plugin binds.
const InstrumentName = "HAWC"

const (
	defaultMinChannel = 0
	defaultMaxChannel = 9
)

// The modeling side works in keV, the engine in MeV.
const mevToKeV = 1000.0

// ErrNoModel is returned by operations that need an engine before SetModel
// has been called.
var ErrNoModel = errors.New("no model set: call SetModel first")

type roiKind int

const (
	roiNone roiKind = iota
	roiCircle
	roiStrip
	roiPolygon
	roiTemplate
)

type roi struct {
	kind      roiKind
	ras       []float64
	decs      []float64
	radius    float64
	fitsPath  string
	threshold float64
	fixed     bool
	galactic  bool
}

// HAWCLike binds the external likelihood engine to a source model: it
// pushes model parameters into the engine cache and pulls likelihood values
// and per-bin quantities back out.
type HAWCLike struct {
	name     string
	maptree  string
	response string
	factory  EngineFactory

	fullSky  bool
	transits float64 // zero = every transit in the map tree

	binList []string
	roi     roi

	// fitCommonNorm toggles the engine's internal common-norm minimization.
	// The common norm as a nuisance parameter is controlled separately via
	// ActivateCommonNorm / DeactivateCommonNorm.
	fitCommonNorm bool
	commonNorm    *Parameter

	engine   Engine
	model    Model
	energies []float64 // keV
}

// Option adjusts plugin construction.
type Option func(*HAWCLike)

// WithFullSky loads the entire map instead of a disc around the sources.
// A full-sky plugin must be given an ROI before SetModel.
func WithFullSky(fullSky bool) Option {
	return func(h *HAWCLike) {
		h.fullSky = fullSky
	}
}

// WithTransits overrides the exposure with a fixed number of transits.
func WithTransits(transits float64) Option {
	return func(h *HAWCLike) {
		h.transits = transits
	}
}

// NewHAWCLike validates the data files and prepares a plugin. Engine
// construction is deferred to SetModel, when the bin selection and source
// geometry are known.
func NewHAWCLike(name, maptree, response string, factory EngineFactory, opts ...Option) (*HAWCLike, error) {
	maptree = utils.SanitizeFilename(maptree)
	response = utils.SanitizeFilename(response)

	if !utils.FileExistingAndReadable(maptree) {
		return nil, fmt.Errorf("map tree %s does not exist or is not readable", maptree)
	}
	if !utils.FileExistingAndReadable(response) {
		return nil, fmt.Errorf("response %s does not exist or is not readable", response)
	}

	h := &HAWCLike{
		name:     name,
		maptree:  maptree,
		response: response,
		factory:  factory,
		binList:  binRange(defaultMinChannel, defaultMaxChannel),
	}

	// The common norm starts fixed; ActivateCommonNorm frees it for the fit.
	h.commonNorm = NewParameter(name+"_ComNorm", 1.0, 0.5, 1.5, 0.01)

	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

func binRange(minChannel, maxChannel int) []string {
	bins := make([]string, 0, maxChannel-minChannel+1)
	for n := minChannel; n <= maxChannel; n++ {
		bins = append(bins, strconv.Itoa(n))
	}
	return bins
}

func (h *HAWCLike) Name() string {
	return h.name
}

func (h *HAWCLike) checkFullSky(method string) {
	if !h.fullSky {
		log.Warnf("%s called, but fullsky was not requested at construction. "+
			"The engine may reject the region; construct with WithFullSky(true) if it does.", method)
	}
}

// SetROI selects a disc around (ra, dec) as the region of interest.
func (h *HAWCLike) SetROI(ra, dec, radius float64, fixedROI, galactic bool) {
	h.checkFullSky("SetROI")

	h.roi = roi{
		kind:     roiCircle,
		ras:      []float64{ra},
		decs:     []float64{dec},
		radius:   radius,
		fixed:    fixedROI,
		galactic: galactic,
	}
}

// SetStripROI selects a coordinate strip as the region of interest.
func (h *HAWCLike) SetStripROI(raStart, raStop, decStart, decStop float64, fixedROI, galactic bool) {
	h.checkFullSky("SetStripROI")

	h.roi = roi{
		kind:     roiStrip,
		ras:      []float64{raStart, raStop},
		decs:     []float64{decStart, decStop},
		fixed:    fixedROI,
		galactic: galactic,
	}
}

// SetPolygonROI selects a polygon of at least three vertices as the region
// of interest.
func (h *HAWCLike) SetPolygonROI(ras, decs []float64, fixedROI, galactic bool) error {
	h.checkFullSky("SetPolygonROI")

	if len(ras) != len(decs) {
		return fmt.Errorf("polygon ROI needs matching coordinate lists, got %d ras and %d decs", len(ras), len(decs))
	}
	if len(ras) < 3 {
		return fmt.Errorf("polygon ROI needs at least 3 vertices, got %d; use SetROI for a disc", len(ras))
	}

	h.roi = roi{
		kind:     roiPolygon,
		ras:      ras,
		decs:     decs,
		fixed:    fixedROI,
		galactic: galactic,
	}

	return nil
}

// SetTemplateROI selects the region of interest from a FITS template,
// keeping pixels above the threshold.
func (h *HAWCLike) SetTemplateROI(fitsPath string, threshold float64, fixedROI bool) {
	h.checkFullSky("SetTemplateROI")

	h.roi = roi{
		kind:      roiTemplate,
		fitsPath:  utils.SanitizeFilename(fitsPath),
		threshold: threshold,
		fixed:     fixedROI,
	}
}

// SetBinList replaces the active analysis bins.
func (h *HAWCLike) SetBinList(binList []string) {
	h.binList = binList

	if h.engine != nil {
		log.Warn("the plugin was already used; the new bin selection takes effect at the next SetModel")
	}
}

// SetActiveMeasurements selects the inclusive analysis-bin channel range.
func (h *HAWCLike) SetActiveMeasurements(minChannel, maxChannel int) {
	h.SetBinList(binRange(minChannel, maxChannel))
}

// SetInternalCommonNormFit toggles the engine's own common-norm
// minimization during likelihood evaluations.
func (h *HAWCLike) SetInternalCommonNormFit(enabled bool) {
	h.fitCommonNorm = enabled
}

// SetModel binds a source model: it builds the engine, pushes the static
// source geometry into the cache, applies the stored ROI and caches the
// evaluation energies.
func (h *HAWCLike) SetModel(model Model) error {
	h.model = model

	engine, err := h.factory.Build(EngineConfig{
		MapTree:  h.maptree,
		Response: h.response,
		Transits: h.transits,
		BinList:  h.binList,
		FullSky:  h.fullSky,
	})
	if err != nil {
		return fmt.Errorf("could not instance the likelihood engine, check that the HAWC software is working: %w", err)
	}
	h.engine = engine

	// Static geometry: extended-source boundaries and point-source
	// positions are assumed not to move during a fit.
	for id := 0; id < model.NumberOfExtendedSources(); id++ {
		lonMin, lonMax, latMin, latMax := model.ExtendedSourceBoundaries(id)
		engine.SetExtendedSourceBoundaries(id, lonMin, lonMax, latMin, latMax)
	}
	for id := 0; id < model.NumberOfPointSources(); id++ {
		ra, dec := model.PointSourcePosition(id)
		engine.SetPointSourcePosition(id, ra, dec)
	}

	if h.fullSky && h.roi.kind == roiNone {
		return errors.New("fullsky was requested: define a region of interest before SetModel")
	}
	h.applyROI()

	// Changes to the common norm, whether from the user, the fit engine or
	// a sampler, propagate straight to the engine.
	h.commonNorm.OnChange(func(p *Parameter) {
		h.engine.SetCommonNorm(p.Value())
	})

	engine.UpdateSources()

	mev := engine.Energies()
	h.energies = make([]float64, len(mev))
	for i, e := range mev {
		h.energies[i] = e * mevToKeV
	}

	return nil
}

func (h *HAWCLike) applyROI() {
	switch h.roi.kind {
	case roiCircle:
		h.engine.SetROI(h.roi.ras[0], h.roi.decs[0], h.roi.radius, h.roi.fixed, h.roi.galactic)
	case roiStrip:
		h.engine.SetStripROI(h.roi.ras[0], h.roi.ras[1], h.roi.decs[0], h.roi.decs[1], h.roi.fixed, h.roi.galactic)
	case roiPolygon:
		h.engine.SetPolygonROI(h.roi.ras, h.roi.decs, h.roi.fixed, h.roi.galactic)
	case roiTemplate:
		h.engine.SetTemplateROI(h.roi.fitsPath, h.roi.threshold, h.roi.fixed)
	}
}

// fillModelCache refreshes the engine's flux cache from the current model,
// converting the modeling convention (per keV) to the engine's (per MeV).
func (h *HAWCLike) fillModelCache() error {
	if h.engine == nil || h.model == nil {
		return ErrNoModel
	}

	for id := 0; id < h.model.NumberOfExtendedSources(); id++ {
		ras, decs := h.engine.Positions(id)

		cube := h.model.ExtendedSourceFluxes(id, ras, decs, h.energies)
		scaled := make([][]float64, len(cube))
		for i, row := range cube {
			scaled[i] = scaleSlice(row, mevToKeV)
		}

		h.engine.SetExtendedSourceCube(id, scaled, ras, decs)
	}

	for id := 0; id < h.model.NumberOfPointSources(); id++ {
		spectrum := scaleSlice(h.model.PointSourceFluxes(id, h.energies), mevToKeV)

		ra, dec := h.model.PointSourcePosition(id)
		h.engine.SetPointSourcePosition(id, ra, dec)
		h.engine.SetPointSourceSpectrum(id, spectrum)
	}

	return nil
}

func scaleSlice(values []float64, factor float64) []float64 {
	scaled := make([]float64, len(values))
	for i, v := range values {
		scaled[i] = v * factor
	}
	return scaled
}

// LogLike returns the log-likelihood for the current parameter values.
func (h *HAWCLike) LogLike() (float64, error) {
	if err := h.fillModelCache(); err != nil {
		return 0, err
	}

	return h.engine.LogLike(h.fitCommonNorm), nil
}

// CalcTS returns the test statistic 2*[log(LL_model) - log(LL_bkg)].
func (h *HAWCLike) CalcTS() (float64, error) {
	if err := h.fillModelCache(); err != nil {
		return 0, err
	}

	return h.engine.CalcTS(h.fitCommonNorm), nil
}

// InnerFit evaluates the likelihood with the engine free to adjust its
// background normalization, then reads the fitted common norm back into the
// nuisance parameter.
func (h *HAWCLike) InnerFit() (float64, error) {
	if h.engine == nil {
		return 0, ErrNoModel
	}

	h.engine.SetBackgroundNormFree(h.fitCommonNorm)

	logLike, err := h.LogLike()
	if err != nil {
		return 0, err
	}

	if err := h.commonNorm.SetValue(h.engine.CommonNorm()); err != nil {
		return 0, fmt.Errorf("fitted common norm rejected: %w", err)
	}

	return logLike, nil
}

// ActivateCommonNorm frees the common-norm nuisance parameter for the fit.
func (h *HAWCLike) ActivateCommonNorm() {
	h.commonNorm.SetFree(true)
}

// DeactivateCommonNorm fixes the common-norm nuisance parameter.
func (h *HAWCLike) DeactivateCommonNorm() {
	h.commonNorm.SetFree(false)
}

// NuisanceParameters returns the plugin's nuisance parameters.
func (h *HAWCLike) NuisanceParameters() []*Parameter {
	return []*Parameter{h.commonNorm}
}

// NumberOfDataPoints returns the pixel count inside the ROI summed over the
// analysis bins.
func (h *HAWCLike) NumberOfDataPoints() (int, error) {
	if h.engine == nil {
		return 0, ErrNoModel
	}

	total := 0.0
	for _, pixels := range h.engine.NumberOfPixels() {
		total += pixels
	}

	return int(total), nil
}

// WriteModelMap asks the engine to write the current model expectation map.
func (h *HAWCLike) WriteModelMap(path string, poisson bool) error {
	if err := h.fillModelCache(); err != nil {
		return err
	}

	return h.engine.WriteModelMap(utils.SanitizeFilename(path), poisson)
}

// WriteResidualMap asks the engine to write the data-minus-model map.
func (h *HAWCLike) WriteResidualMap(path string) error {
	if err := h.fillModelCache(); err != nil {
		return err
	}

	return h.engine.WriteResidualMap(utils.SanitizeFilename(path))
}
