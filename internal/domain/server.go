package domain

// Server is one replica reachable through the container runtime. Servers are
// loaded once at startup and never mutated during a run.
type Server struct {
	ID           string
	Container    string
	User         string
	Password     string
	PasswordFile string
	StagingDir   string
	BackupDir    string
}

// ServerIDs returns the ids of servers in iteration order.
func ServerIDs(servers []Server) []string {
	ids := make([]string, 0, len(servers))
	for _, s := range servers {
		ids = append(ids, s.ID)
	}
	return ids
}
