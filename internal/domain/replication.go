package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxLagSeconds is the lag above which a replica is reported as lagging.
const MaxLagSeconds = 3600

var (
	runningPattern = regexp.MustCompile(`(?i)^Slave_running\s+ON$`)
	lagPattern     = regexp.MustCompile(`(?mi)^\s*Seconds_Behind_Master\s*:\s*([0-9]+|NULL)\s*$`)
)

// IsSlaveRunning parses the `SHOW STATUS LIKE 'Slave_Running'` output.
func IsSlaveRunning(output string) bool {
	return runningPattern.MatchString(strings.TrimSpace(output))
}

// Lag is the replica delay. Null means the server reported NULL.
type Lag struct {
	Seconds int64
	Null    bool
}

func (l Lag) String() string {
	if l.Null {
		return "NULL"
	}
	return strconv.FormatInt(l.Seconds, 10)
}

// ParseLag extracts Seconds_Behind_Master from `SHOW SLAVE STATUS\G` output.
func ParseLag(status string) (Lag, error) {
	m := lagPattern.FindStringSubmatch(status)
	if m == nil {
		return Lag{}, &LagParseError{Output: status}
	}
	if strings.EqualFold(m[1], "null") {
		return Lag{Null: true}, nil
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Lag{}, &LagParseError{Output: status}
	}
	return Lag{Seconds: n}, nil
}

// HealthLevel orders replication states by severity.
type HealthLevel int

const (
	HealthOK HealthLevel = iota
	HealthLagging
	HealthError
)

func (h HealthLevel) String() string {
	switch h {
	case HealthOK:
		return "OK"
	case HealthLagging:
		return "LAGGING"
	default:
		return "ERROR"
	}
}

// IsError reports whether the level counts toward a report's error flag.
func (h HealthLevel) IsError() bool {
	return h != HealthOK
}

// ReplicationState is derived per server on every health check.
type ReplicationState struct {
	ProbeError error
	Running    bool
	Lag        Lag
	LagError   error
}

// Classify maps a state onto a HealthLevel.
func (s ReplicationState) Classify() HealthLevel {
	switch {
	case s.ProbeError != nil, !s.Running:
		return HealthError
	case s.LagError != nil:
		return HealthError
	case s.Lag.Null || s.Lag.Seconds <= MaxLagSeconds:
		return HealthOK
	default:
		return HealthLagging
	}
}

// StatusLine renders the human-readable report line for a server.
func (s ReplicationState) StatusLine(serverID string) string {
	switch {
	case s.ProbeError != nil:
		return fmt.Sprintf("Server %s : COULD NOT QUERY STATUS (%v)", serverID, s.ProbeError)
	case !s.Running:
		return fmt.Sprintf("Server %s : SLAVE NOT RUNNING", serverID)
	case s.LagError != nil:
		return fmt.Sprintf("Server %s : COULD NOT PARSE Seconds_Behind_Master", serverID)
	case s.Classify() == HealthOK:
		return fmt.Sprintf("Server %s : OK (%s seconds behind master)", serverID, s.Lag)
	default:
		return fmt.Sprintf("Server %s : LAGGING : %s seconds behind master", serverID, s.Lag)
	}
}
