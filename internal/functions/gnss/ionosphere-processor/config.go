// internal/functions/gnss/ionosphere-processor/config.go
package ionosphereprocessor

const (
	FunctionName = "ionosphere-processor"

	TableCorrections = "ionosphere_corrections"
	TablePositions   = "vessel_positions"

	DefaultStormKpThreshold = 5.0
)

// Step names reported in the output.
const (
	StepFetchCorrection      = "fetch_correction"
	StepStoreCorrection      = "store_correction"
	StepUpdateVesselPosition = "update_vessel_position"
	StepStormAlert           = "storm_alert"
)

type Config struct {
	// StormKpThreshold is the Kp index at or above which a storm alert is published.
	StormKpThreshold float64
}

func LoadConfig() *Config {
	return &Config{StormKpThreshold: DefaultStormKpThreshold}
}
