package config

import "flag"

var (
	flagConfig      = flag.String("config", "", "Path to config file")
	flagDebug       = flag.Bool("debug", false, "Enable debug logging")
	flagMaxVertices = flag.Int("max-vertices", 0, "Maximum unique vertices per meshlet")
	flagMaxPrims    = flag.Int("max-prims", 0, "Maximum triangles per meshlet")
	flagWorkers     = flag.Int("workers", 0, "Sections processed in parallel")
	flagNoCull      = flag.Bool("no-cull", false, "Skip cull data generation")
	flagClockwise   = flag.Bool("cw", false, "Treat front faces as clockwise")
	flagOutput      = flag.String("o", "", "Report output path")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments left after ParseFlags.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagMaxVertices > 0 {
		cfg.Meshlet.MaxVertices = uint32(*flagMaxVertices)
	}
	if *flagMaxPrims > 0 {
		cfg.Meshlet.MaxPrimitives = uint32(*flagMaxPrims)
	}
	if *flagWorkers > 0 {
		cfg.Pipeline.Workers = *flagWorkers
	}
	if *flagNoCull {
		cfg.Meshlet.CullData = false
	}
	if *flagClockwise {
		cfg.Meshlet.ClockwiseWinding = true
	}
	if *flagOutput != "" {
		cfg.Output.Report = *flagOutput
	}
}
