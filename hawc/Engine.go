package hawc

// Engine is the native likelihood engine the plugin drives. Implementations
// wrap the observatory's map/response machinery; the plugin only marshals
// model parameters in and likelihood results back out. Likelihood math, map
// I/O formats and flux evaluation all live behind this boundary.
type Engine interface {
	// Model parameter cache. Geometry is pushed once per model; fluxes are
	// refreshed before every likelihood evaluation.
	SetExtendedSourceBoundaries(sourceID int, lonMin, lonMax, latMin, latMax float64)
	SetPointSourcePosition(sourceID int, ra, dec float64)
	SetPointSourceSpectrum(sourceID int, fluxes []float64)
	SetExtendedSourceCube(sourceID int, cube [][]float64, ras, decs []float64)

	// Region of interest.
	SetROI(ra, dec, radius float64, fixedROI, galactic bool)
	SetStripROI(raStart, raStop, decStart, decStop float64, fixedROI, galactic bool)
	SetPolygonROI(ras, decs []float64, fixedROI, galactic bool)
	SetTemplateROI(fitsPath string, threshold float64, fixedROI bool)

	// UpdateSources starts the engine's internal computation of positions
	// and energies for the sources currently in the cache.
	UpdateSources()

	// Energies returns the evaluation energies in MeV.
	Energies() []float64

	// Positions returns the evaluation grid for an extended source.
	Positions(sourceID int) (ras, decs []float64)

	SetCommonNorm(value float64)
	CommonNorm() float64
	SetBackgroundNormFree(free bool)

	LogLike(fitCommonNorm bool) float64
	CalcTS(fitCommonNorm bool) float64

	// Top-hat quantities are per analysis bin, cumulative over a disc of the
	// given radius around (ra, dec).
	TopHatExpectedExcesses(ra, dec, radius float64) []float64
	TopHatExcesses(ra, dec, radius float64) []float64
	TopHatBackgrounds(ra, dec, radius float64) []float64
	TopHatAreas(ra, dec, radius float64) []float64

	// NumberOfPixels returns the pixel count inside the ROI per analysis bin.
	NumberOfPixels() []float64

	WriteModelMap(path string, poisson bool) error
	WriteResidualMap(path string) error
}

// EngineConfig carries everything the native side needs to load its maps.
type EngineConfig struct {
	MapTree  string
	Response string

	// Transits scales the exposure; zero means every transit in the map tree.
	Transits float64

	BinList []string

	// FullSky loads the entire map instead of a disc around the sources.
	// The engine then requires an explicit ROI before it can evaluate.
	FullSky bool
}

// EngineFactory builds an Engine. Construction is deferred until the model
// is known because loading the maps is expensive and depends on the active
// bin selection.
type EngineFactory interface {
	Build(cfg EngineConfig) (Engine, error)
}

// Model is the plugin's view of the source-modeling framework. Fluxes are
// in the modeling convention, 1/(keV cm2 s); the plugin converts to the
// engine's MeV convention when filling the cache.
type Model interface {
	NumberOfPointSources() int
	NumberOfExtendedSources() int

	PointSourcePosition(sourceID int) (ra, dec float64)
	PointSourceFluxes(sourceID int, energies []float64) []float64

	ExtendedSourceBoundaries(sourceID int) (lonMin, lonMax, latMin, latMax float64)
	// ExtendedSourceFluxes returns one row per (ra, dec) position, one
	// column per energy.
	ExtendedSourceFluxes(sourceID int, ras, decs, energies []float64) [][]float64
}
