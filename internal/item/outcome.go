package item

// Outcome names the terminal archive an item is appended to. The string
// value doubles as the archive file basename under the history directory.
type Outcome string

const (
	OutcomePass               Outcome = "pass"
	OutcomeDownloadFail       Outcome = "download_fail"
	OutcomeManualIntervention Outcome = "manual_intervention"
	OutcomeSeriesScore        Outcome = "series_score"
	OutcomeEpisodeScore       Outcome = "episode_score"
	OutcomeUnmonitoredSeries  Outcome = "unmonitored_series"
	OutcomeUnmonitoredEpisode Outcome = "unmonitored_episode"
	OutcomeEpisodeHasFile     Outcome = "episode_has_file"
	OutcomeRequeued           Outcome = "requeued"
	OutcomeAllProcessed       Outcome = "all_processed"
	OutcomeDownloadEnqueue    Outcome = "download_enqueue"
)

var allOutcomes = []Outcome{
	OutcomePass,
	OutcomeDownloadFail,
	OutcomeManualIntervention,
	OutcomeSeriesScore,
	OutcomeEpisodeScore,
	OutcomeUnmonitoredSeries,
	OutcomeUnmonitoredEpisode,
	OutcomeEpisodeHasFile,
	OutcomeRequeued,
	OutcomeAllProcessed,
	OutcomeDownloadEnqueue,
}

var outcomeSet = func() map[Outcome]struct{} {
	set := make(map[Outcome]struct{}, len(allOutcomes))
	for _, outcome := range allOutcomes {
		set[outcome] = struct{}{}
	}
	return set
}()

// AllOutcomes returns the known terminal outcomes.
func AllOutcomes() []Outcome {
	cp := make([]Outcome, len(allOutcomes))
	copy(cp, allOutcomes)
	return cp
}

// ParseOutcome converts an archive name into a known Outcome.
func ParseOutcome(value string) (Outcome, bool) {
	outcome := Outcome(value)
	_, ok := outcomeSet[outcome]
	return outcome, ok
}

// Filename returns the archive file basename for the outcome.
func (o Outcome) Filename() string {
	return string(o) + ".json"
}
