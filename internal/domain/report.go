package domain

import "strings"

// Outcome is the result of one server's backup.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// ServerBackup records what happened to one server during a backup run.
type ServerBackup struct {
	ServerID  string
	Databases []string
	Outcome   Outcome
	Err       error
}

// BackupReport aggregates a backup run for the daily summary.
type BackupReport struct {
	Date    string
	Servers []ServerBackup
}

// ServerIDs lists every processed server in run order.
func (r BackupReport) ServerIDs() []string {
	ids := make([]string, 0, len(r.Servers))
	for _, s := range r.Servers {
		ids = append(ids, s.ServerID)
	}
	return ids
}

// Failed returns the servers whose backup failed.
func (r BackupReport) Failed() []ServerBackup {
	var failed []ServerBackup
	for _, s := range r.Servers {
		if s.Outcome == OutcomeFailed {
			failed = append(failed, s)
		}
	}
	return failed
}

// HealthReport aggregates a health check run.
type HealthReport struct {
	Date     string
	Lines    []string
	HasError bool
}

// Add appends the status line for a server and folds its level into HasError.
func (r *HealthReport) Add(serverID string, state ReplicationState) {
	r.Lines = append(r.Lines, state.StatusLine(serverID))
	if state.Classify().IsError() {
		r.HasError = true
	}
}

// Text is the plain-text body sent to operators.
func (r HealthReport) Text() string {
	return strings.Join(r.Lines, "\n")
}
