package domain

import "context"

// SystemSchemas are never dumped.
var SystemSchemas = []string{"information_schema", "performance_schema"}

// IsSystemSchema reports whether name is one of SystemSchemas.
func IsSystemSchema(name string) bool {
	for _, s := range SystemSchemas {
		if s == name {
			return true
		}
	}
	return false
}

// Replica is the set of operations run against one replica server.
type Replica interface {
	// SlaveStatus returns the raw `SHOW SLAVE STATUS\G` output.
	SlaveStatus(ctx context.Context) (string, error)
	// RunningStatus returns the raw `SHOW STATUS LIKE 'Slave_Running'` output.
	RunningStatus(ctx context.Context) (string, error)
	StopSlave(ctx context.Context) error
	StartSlave(ctx context.Context) error
	ListDatabases(ctx context.Context) ([]string, error)
	Dump(ctx context.Context, database, outputPath string) error
}

// ReplicaFactory builds the Replica for a server.
type ReplicaFactory func(server Server) (Replica, error)

// IncrementSyncer keeps reverse increments of a staging directory.
type IncrementSyncer interface {
	Sync(ctx context.Context, from, to string) error
	RemoveOlderThan(ctx context.Context, dir, age string) error
}
