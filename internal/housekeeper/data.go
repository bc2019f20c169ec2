package housekeeper

// PruneSummary is the lifecycle event emitted after every prune cycle,
// manual or scheduled.
type PruneSummary struct {
	ItemCount    int     `json:"item_count"`
	DeletedCount int     `json:"deleted_count"`
	FreedMB      float64 `json:"freed_mb"`
	FinalMB      float64 `json:"final_mb"`
	TargetMB     float64 `json:"target_mb"`
	Anomalies    int     `json:"anomalies"`
	ExitCode     int     `json:"exit_code"`
}

const (
	exitCodeOK       = 0
	exitCodeLockBusy = 1
	exitCodeError    = 2
)
