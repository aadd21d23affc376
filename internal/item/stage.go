package item

// Stage identifies one of the three pipeline stages.
type Stage string

const (
	StageDecision Stage = "decision"
	StageAging    Stage = "aging"
	StageDownload Stage = "download"
)

// AllStages returns the stages in pipeline order.
func AllStages() []Stage {
	return []Stage{StageDecision, StageAging, StageDownload}
}

// Valid reports whether the stage is one of the three known stages.
func (s Stage) Valid() bool {
	switch s {
	case StageDecision, StageAging, StageDownload:
		return true
	}
	return false
}
