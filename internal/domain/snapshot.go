package domain

import "time"

// HealthState classifies a source's operational status.
type HealthState string

const (
	HealthDisabled HealthState = "Disabled"
	HealthError    HealthState = "Error"
	HealthNever    HealthState = "Never"
	HealthHealthy  HealthState = "Healthy"
	HealthOverdue  HealthState = "Overdue"
)

// SourceHealth is one rendered row of the source health table.
type SourceHealth struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"displayName"`
	State       HealthState `json:"state"`
	LastRun     string      `json:"lastRun"`
	NextDue     string      `json:"nextDue"`
	CardCount   int         `json:"cardCount"`
	QualityTier int         `json:"qualityTier"`
	LastError   string      `json:"lastError,omitempty"`
}

// OverviewStats holds the eight headline counters.
type OverviewStats struct {
	TotalCards        int    `json:"totalCards"`
	ActiveSources     int    `json:"activeSources"`
	PendingProcessing int    `json:"pendingProcessing"`
	MissingImages     int    `json:"missingImages"`
	TotalLikes        int    `json:"totalLikes"`
	TotalDislikes     int    `json:"totalDislikes"`
	AvgQuality        string `json:"avgQuality"`
	CardsWithLinks    int    `json:"cardsWithLinks"`
}

// PipelineStats partitions raw items by processing outcome.
type PipelineStats struct {
	Unprocessed     int    `json:"unprocessed"`
	Created         int    `json:"created"`
	Rejected        int    `json:"rejected"`
	Errors          int    `json:"errors"`
	ProgressPercent string `json:"progressPercent"`
}

// ProgressText renders the percentage the way the progress bar labels it.
func (p PipelineStats) ProgressText() string {
	return p.ProgressPercent + "% processed"
}

// ActivityStats counts recent card creation.
type ActivityStats struct {
	Last24Hours int    `json:"last24Hours"`
	Last7Days   int    `json:"last7Days"`
	MostRecent  string `json:"mostRecent"`
}

// Timeline carries the most recent event of each pipeline stage.
type Timeline struct {
	LastScrape      string `json:"lastScrape"`
	LastRawContent  string `json:"lastRawContent"`
	LastProcessed   string `json:"lastProcessed"`
	LastCardCreated string `json:"lastCardCreated"`
}

// FunctionStatus is the last-run indicator of one triggerable command.
type FunctionStatus struct {
	Name    string `json:"name"`
	LastRun string `json:"lastRun"`
}

// Snapshot is the full derived dashboard state produced by one refresh pass.
type Snapshot struct {
	Overview  OverviewStats    `json:"overview"`
	Pipeline  PipelineStats    `json:"pipeline"`
	Sources   []SourceHealth   `json:"sources"`
	Activity  ActivityStats    `json:"activity"`
	Timeline  Timeline         `json:"timeline"`
	Functions []FunctionStatus `json:"functions"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// EmptySnapshot is the state shown before the first pass completes.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Overview: OverviewStats{AvgQuality: "50.0"},
		Pipeline: PipelineStats{ProgressPercent: "0.0"},
		Activity: ActivityStats{MostRecent: "Never"},
		Timeline: Timeline{
			LastScrape:      "Never",
			LastRawContent:  "Never",
			LastProcessed:   "Never",
			LastCardCreated: "Never",
		},
	}
}
