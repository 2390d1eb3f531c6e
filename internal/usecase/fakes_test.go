package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/semmidev/replguard/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

// journal records calls across every fake in call order.
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(call string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, call)
}

func (j *journal) For(prefix string) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, c := range j.calls {
		if len(c) > len(prefix) && c[:len(prefix)+1] == prefix+":" {
			out = append(out, c[len(prefix)+1:])
		}
	}
	return out
}

type fakeReplica struct {
	id         string
	j          *journal
	running    string
	runningErr error
	status     string
	statusErr  error
	databases  []string
	failDump   string
	stopErr    error
	startErr   error
	afterDump  func()
}

func (r *fakeReplica) record(call string) {
	r.j.add(r.id + ":" + call)
}

func (r *fakeReplica) RunningStatus(ctx context.Context) (string, error) {
	r.record("probe")
	return r.running, r.runningErr
}

func (r *fakeReplica) SlaveStatus(ctx context.Context) (string, error) {
	r.record("status")
	return r.status, r.statusErr
}

func (r *fakeReplica) StopSlave(ctx context.Context) error {
	r.record("pause")
	return r.stopErr
}

func (r *fakeReplica) StartSlave(ctx context.Context) error {
	r.record("resume")
	return r.startErr
}

func (r *fakeReplica) ListDatabases(ctx context.Context) ([]string, error) {
	r.record("list")
	return r.databases, nil
}

func (r *fakeReplica) Dump(ctx context.Context, database, outputPath string) error {
	r.record("dump(" + database + ")")
	if database == r.failDump {
		return errors.New("mysqldump: lost connection")
	}
	if err := os.WriteFile(outputPath, []byte("-- dump of "+database), 0644); err != nil {
		return err
	}
	if r.afterDump != nil {
		r.afterDump()
	}
	return nil
}

func healthyReplica(id string, j *journal, databases ...string) *fakeReplica {
	return &fakeReplica{
		id:        id,
		j:         j,
		running:   "Slave_running\tON\n",
		status:    "Seconds_Behind_Master: 0\n",
		databases: databases,
	}
}

func factoryOf(replicas ...*fakeReplica) domain.ReplicaFactory {
	byID := make(map[string]*fakeReplica, len(replicas))
	for _, r := range replicas {
		byID[r.id] = r
	}
	return func(s domain.Server) (domain.Replica, error) {
		r, ok := byID[s.ID]
		if !ok {
			return nil, fmt.Errorf("no replica for %s", s.ID)
		}
		return r, nil
	}
}

type fakeSyncer struct {
	j        *journal
	syncErr  error
	pruneErr error
}

func (s *fakeSyncer) Sync(ctx context.Context, from, to string) error {
	s.j.add("rdiff:sync " + filepath.Base(filepath.Dir(to)))
	return s.syncErr
}

func (s *fakeSyncer) RemoveOlderThan(ctx context.Context, dir, age string) error {
	s.j.add("rdiff:prune " + age)
	return s.pruneErr
}

type fakeNotifier struct {
	backups []domain.BackupReport
	healths []domain.HealthReport
	err     error
}

func (n *fakeNotifier) NotifyBackup(ctx context.Context, report domain.BackupReport) error {
	if n.err != nil {
		return n.err
	}
	n.backups = append(n.backups, report)
	return nil
}

func (n *fakeNotifier) NotifyHealth(ctx context.Context, report domain.HealthReport) error {
	if n.err != nil {
		return n.err
	}
	n.healths = append(n.healths, report)
	return nil
}

type fakeStore struct {
	mu       sync.Mutex
	uploads  map[string]string
	files    []string
	old      []string
	oldErr   error
	deleted  []string
	failName string
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploads: map[string]string{}}
}

func (s *fakeStore) Put(ctx context.Context, localPath, remoteName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if remoteName == s.failName {
		return errors.New("upload refused")
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.uploads[remoteName] = string(data)
	return nil
}

func (s *fakeStore) List(ctx context.Context) ([]string, error) {
	return s.files, nil
}

func (s *fakeStore) Delete(ctx context.Context, remoteName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, remoteName)
	return nil
}

func (s *fakeStore) ListOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	return s.old, s.oldErr
}

// copyCompressor stands in for gzip by prefixing the content.
type copyCompressor struct{}

func (copyCompressor) Compress(sourcePath, destPath string) error {
	src, err := os.Open(sourcePath)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.WriteString(dst, "gz:"); err != nil {
		return err
	}
	_, err = io.Copy(dst, src)
	return err
}

func fixedClock(day string) func() time.Time {
	t, err := time.Parse(domain.DateLayout, day)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t.Add(2 * time.Hour) }
}

func testServers(root string, ids ...string) []domain.Server {
	servers := make([]domain.Server, 0, len(ids))
	for _, id := range ids {
		servers = append(servers, domain.Server{
			ID:         id,
			Container:  "mysql-" + id,
			User:       "backup",
			StagingDir: filepath.Join(root, "cache", "tmp_dumps", id),
			BackupDir:  filepath.Join(root, "backups", id, "sqls"),
		})
	}
	return servers
}
