// internal/functions/inspection/starfix-sync/config.go
package starfixsync

const (
	FunctionName = "starfix-sync"

	TableVessels     = "starfix_vessels"
	TableInspections = "starfix_inspections"
)

// Step names reported in the output. Inspection upserts are suffixed with the inspection id.
const (
	StepFetchInspections = "fetch_inspections"
	StepUpsertVessel     = "upsert_vessel"
	StepUpsertInspection = "upsert_inspection"
	StepDetentionAlert   = "detention_alert"
)
