package ebm

// Config collects the physical constants of the model. All of them are
// explicit so a run is fully reproducible from its configuration; nothing
// is read from package-level state.
type Config struct {
	Stefan         float64 // Stefan-Boltzmann constant, W m^-2 K^-4
	Diffusion      float64 // meridional diffusion coefficient, W m^-2 K^-1
	HeatCapacity   float64 // column heat capacity, J m^-2 K^-1
	AlbedoFlat     float64 // baseline albedo at the equator
	AlbedoGradient float64 // baseline albedo increase with sin^2(latitude)
	Emissivity     float64 // baseline longwave emissivity
	InitBias       float64 // initial profile offset, K
	InitRange      float64 // initial equator-to-pole contrast, K
}

// DefaultConfig returns constants for a present-day-like gray atmosphere
// over a 50 m ocean mixed layer. With annual-mean insolation of about
// 340 W m^-2 the model equilibrates near 288 K at the equator.
func DefaultConfig() Config {
	return Config{
		Stefan:         5.670374419e-8,
		Diffusion:      0.55,
		HeatCapacity:   2.1e8,
		AlbedoFlat:     0.3,
		AlbedoGradient: 0.2,
		Emissivity:     0.61,
		InitBias:       273.0,
		InitRange:      30.0,
	}
}
