package usecase

import (
	"fmt"
	"os"
	"strings"

	"github.com/semmidev/replguard/internal/domain"
)

// Resolve narrows the configured servers to the requested ids. With no ids
// every server is returned. The result keeps the configured order, so the
// order of requested ids does not matter.
func Resolve(all []domain.Server, requested []string) ([]domain.Server, error) {
	if len(all) == 0 {
		return nil, domain.ErrNoServers
	}
	if len(requested) == 0 {
		return all, nil
	}

	known := make(map[string]bool, len(all))
	for _, s := range all {
		known[s.ID] = true
	}

	wanted := make(map[string]bool, len(requested))
	var unknown []string
	for _, id := range requested {
		if !known[id] {
			unknown = append(unknown, id)
			continue
		}
		wanted[id] = true
	}
	if len(unknown) > 0 {
		return nil, &domain.UnknownServerError{IDs: unknown, Available: domain.ServerIDs(all)}
	}

	subset := make([]domain.Server, 0, len(wanted))
	for _, s := range all {
		if wanted[s.ID] {
			subset = append(subset, s)
		}
	}
	return subset, nil
}

// ResolveSecret returns the password for a server. A password file takes
// precedence over the inline password.
func ResolveSecret(s domain.Server) (string, error) {
	if s.PasswordFile == "" {
		return s.Password, nil
	}
	data, err := os.ReadFile(s.PasswordFile)
	if err != nil {
		return "", fmt.Errorf("server %s: read password file: %w", s.ID, err)
	}
	return strings.TrimSpace(string(data)), nil
}
