package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoServers is returned when the configuration holds no server.
	ErrNoServers = errors.New("no server configured")
	// ErrReplicaNotRunning marks a server skipped because its replication is stopped.
	ErrReplicaNotRunning = errors.New("slave not running")
	// ErrPartialBackup is returned once a run completes with failed servers.
	ErrPartialBackup = errors.New("backup failed for some servers")
)

// UnknownServerError is returned when a requested server id is not configured.
type UnknownServerError struct {
	IDs       []string
	Available []string
}

func (e *UnknownServerError) Error() string {
	return fmt.Sprintf("server %s requested but not configured (available: %s)",
		strings.Join(e.IDs, ", "), strings.Join(e.Available, ";"))
}

// Stage names one step of a server backup.
type Stage string

const (
	StagePrepare   Stage = "prepare"
	StageProbe     Stage = "probe"
	StagePause     Stage = "pause"
	StageEnumerate Stage = "enumerate"
	StageDump      Stage = "dump"
	StageResume    Stage = "resume"
	StageSync      Stage = "sync"
	StagePrune     Stage = "prune"
	StageCleanup   Stage = "cleanup"
)

// StageError wraps the failure of one stage on one server.
type StageError struct {
	Server string
	Stage  Stage
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("server %s: %s: %v", e.Server, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// LagParseError is returned when Seconds_Behind_Master cannot be read.
type LagParseError struct {
	Output string
}

func (e *LagParseError) Error() string {
	return "could not parse Seconds_Behind_Master"
}
