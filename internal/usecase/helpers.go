package usecase

import (
	"fmt"
	"strings"
	"time"
)

const copyStampLayout = "20060102_150405"

// copyName is the offsite name of a dump: <server>_<db>_<stamp>.sql.
func copyName(serverID, database string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s.sql", serverID, database, at.Format(copyStampLayout))
}

// extractTimestamp reads the stamp back from a name built by copyName,
// with or without a trailing .gz.
func extractTimestamp(name string) (time.Time, error) {
	base, ok := strings.CutSuffix(strings.TrimSuffix(name, ".gz"), ".sql")
	if !ok {
		return time.Time{}, fmt.Errorf("%q is not an SQL dump copy", name)
	}

	cut := strings.LastIndexByte(base, '_')
	if cut < 0 {
		return time.Time{}, fmt.Errorf("no timestamp in %q", name)
	}
	cut = strings.LastIndexByte(base[:cut], '_')
	if cut < 0 {
		return time.Time{}, fmt.Errorf("no timestamp in %q", name)
	}
	return time.Parse(copyStampLayout, base[cut+1:])
}
