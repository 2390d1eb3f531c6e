package usecase

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/replguard/internal/domain"
	"github.com/semmidev/replguard/internal/infrastructure/lock"
)

func TestBackup(t *testing.T) {
	Convey("Given a backup orchestrator over two replicas", t, func() {
		root, err := os.MkdirTemp("", "backup_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(root)

		ctx := context.Background()
		j := &journal{}
		db1 := healthyReplica("db1", j, "information_schema", "performance_schema", "appdb")
		db2 := healthyReplica("db2", j, "shop", "crm")
		syncer := &fakeSyncer{j: j}
		notifier := &fakeNotifier{}
		lockPath := filepath.Join(root, "cache", "backup.lock")
		servers := testServers(root, "db1", "db2")

		newBackup := func(day string) *Backup {
			return NewBackup(factoryOf(db1, db2), syncer, notifier, lock.NewManager(), nopLogger{}, BackupOptions{
				LockPath: lockPath,
				Now:      fixedClock(day),
			})
		}

		Convey("When every replica is healthy", func() {
			err := newBackup("2026-10-17").Execute(ctx, servers)
			So(err, ShouldBeNil)

			Convey("Stages run in order with replication resumed after the dumps", func() {
				So(j.For("db1"), ShouldResemble, []string{"probe", "pause", "list", "dump(appdb)", "resume"})
				So(j.For("db2"), ShouldResemble, []string{"probe", "pause", "list", "dump(shop)", "dump(crm)", "resume"})
				So(j.For("rdiff"), ShouldResemble, []string{"sync db1", "prune 4W", "sync db2", "prune 4W"})
			})

			Convey("The next server starts only after the previous one resumed", func() {
				So(j.calls[4], ShouldEqual, "db1:resume")
				So(j.calls[7], ShouldEqual, "db2:probe")
			})

			Convey("Directories exist and staged dumps are removed", func() {
				for _, s := range servers {
					_, err := os.Stat(s.BackupDir)
					So(err, ShouldBeNil)
					left, err := filepath.Glob(filepath.Join(s.StagingDir, "*.sql"))
					So(err, ShouldBeNil)
					So(left, ShouldBeEmpty)
				}
			})

			Convey("One report lists the processed servers and today is recorded", func() {
				So(notifier.backups, ShouldHaveLength, 1)
				report := notifier.backups[0]
				So(report.ServerIDs(), ShouldResemble, []string{"db1", "db2"})
				So(report.Servers[0].Databases, ShouldResemble, []string{"appdb"})
				So(report.Servers[0].Outcome, ShouldEqual, domain.OutcomeSuccess)

				content, err := os.ReadFile(lockPath)
				So(err, ShouldBeNil)
				So(string(content), ShouldEqual, "2026-10-17")
			})

			Convey("A second run the same day sends no further report", func() {
				So(newBackup("2026-10-17").Execute(ctx, servers), ShouldBeNil)
				So(notifier.backups, ShouldHaveLength, 1)

				Convey("But the next day does", func() {
					So(newBackup("2026-10-18").Execute(ctx, servers), ShouldBeNil)
					So(notifier.backups, ShouldHaveLength, 2)
				})
			})
		})

		Convey("When a dump fails", func() {
			db1.databases = []string{"appdb", "broken", "later"}
			db1.failDump = "broken"

			err := newBackup("2026-10-17").Execute(ctx, servers)

			Convey("Replication is resumed exactly once after the failed dump", func() {
				So(j.For("db1"), ShouldResemble, []string{"probe", "pause", "list", "dump(appdb)", "dump(broken)", "resume"})
			})

			Convey("The failed server is not synced but the next server is backed up", func() {
				So(j.For("rdiff"), ShouldResemble, []string{"sync db2", "prune 4W"})
				So(j.For("db2"), ShouldResemble, []string{"probe", "pause", "list", "dump(shop)", "dump(crm)", "resume"})
			})

			Convey("The run reports a partial failure naming the server and stage", func() {
				So(errors.Is(err, domain.ErrPartialBackup), ShouldBeTrue)
				var stageErr *domain.StageError
				So(errors.As(err, &stageErr), ShouldBeTrue)
				So(stageErr.Server, ShouldEqual, "db1")
				So(stageErr.Stage, ShouldEqual, domain.StageDump)
				So(err.Error(), ShouldContainSubstring, "database broken")

				So(notifier.backups, ShouldHaveLength, 1)
				So(notifier.backups[0].Failed(), ShouldHaveLength, 1)
			})
		})

		Convey("When the run is interrupted during the first server", func() {
			interrupted, cancel := context.WithCancel(ctx)
			defer cancel()
			db1.afterDump = cancel

			err := newBackup("2026-10-17").Execute(interrupted, servers)

			Convey("The current server resumes and no further server is touched", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "interrupted before db2")
				So(j.For("db1"), ShouldContain, "resume")
				So(j.For("db2"), ShouldBeEmpty)
				So(notifier.backups, ShouldBeEmpty)
			})
		})

		Convey("When a replica is not running", func() {
			db1.running = "Slave_running\tOFF\n"

			err := newBackup("2026-10-17").Execute(ctx, servers)

			Convey("It is skipped without touching replication", func() {
				So(err, ShouldBeNil)
				So(j.For("db1"), ShouldResemble, []string{"probe"})
				So(j.For("db2"), ShouldResemble, []string{"probe", "pause", "list", "dump(shop)", "dump(crm)", "resume"})
				So(notifier.backups[0].Servers[0].Outcome, ShouldEqual, domain.OutcomeSkipped)
				So(errors.Is(notifier.backups[0].Servers[0].Err, domain.ErrReplicaNotRunning), ShouldBeTrue)
			})
		})

		Convey("When the status probe itself fails", func() {
			db1.runningErr = errors.New("container not found")

			err := newBackup("2026-10-17").Execute(ctx, servers)

			Convey("The server is skipped like a stopped replica", func() {
				So(err, ShouldBeNil)
				So(j.For("db1"), ShouldResemble, []string{"probe"})
				So(notifier.backups[0].Servers[0].Outcome, ShouldEqual, domain.OutcomeSkipped)
			})
		})

		Convey("When pausing fails", func() {
			db1.stopErr = errors.New("access denied")

			err := newBackup("2026-10-17").Execute(ctx, servers)

			Convey("The run aborts without resuming, dumping or reporting", func() {
				var stageErr *domain.StageError
				So(errors.As(err, &stageErr), ShouldBeTrue)
				So(stageErr.Stage, ShouldEqual, domain.StagePause)
				So(j.For("db1"), ShouldResemble, []string{"probe", "pause"})
				So(j.For("db2"), ShouldBeEmpty)
				So(notifier.backups, ShouldBeEmpty)
			})
		})

		Convey("When resuming fails", func() {
			db1.startErr = errors.New("replica gone")

			err := newBackup("2026-10-17").Execute(ctx, servers)

			Convey("The run aborts after the resume attempt", func() {
				var stageErr *domain.StageError
				So(errors.As(err, &stageErr), ShouldBeTrue)
				So(stageErr.Stage, ShouldEqual, domain.StageResume)
				So(j.For("db1"), ShouldResemble, []string{"probe", "pause", "list", "dump(appdb)", "resume"})
				So(j.For("db2"), ShouldBeEmpty)
			})
		})

		Convey("When syncing fails", func() {
			syncer.syncErr = errors.New("rdiff-backup exploded")

			err := newBackup("2026-10-17").Execute(ctx, servers)

			Convey("The run aborts", func() {
				var stageErr *domain.StageError
				So(errors.As(err, &stageErr), ShouldBeTrue)
				So(stageErr.Stage, ShouldEqual, domain.StageSync)
				So(j.For("db2"), ShouldBeEmpty)
			})
		})

		Convey("When the notification fails", func() {
			notifier.err = errors.New("smtp down")

			err := newBackup("2026-10-17").Execute(ctx, servers)

			Convey("The error surfaces and today is not recorded", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "notify: smtp down")
				content, _ := os.ReadFile(lockPath)
				So(string(content), ShouldEqual, "")
			})
		})

		Convey("When another run holds the lock", func() {
			held, err := lock.Acquire(lockPath)
			So(err, ShouldBeNil)
			defer held.Release()

			err = newBackup("2026-10-17").Execute(ctx, servers)

			Convey("It fails before any side effect", func() {
				So(errors.Is(err, lock.ErrContention), ShouldBeTrue)
				So(j.calls, ShouldBeEmpty)
			})
		})

		Convey("When stale dumps are left in staging", func() {
			stale := filepath.Join(servers[0].StagingDir, "dropped.sql")
			So(os.MkdirAll(servers[0].StagingDir, 0755), ShouldBeNil)
			So(os.WriteFile(stale, []byte("old"), 0644), ShouldBeNil)

			offsiteStore := newFakeStore()
			uc := newBackup("2026-10-17")
			uc.offsite = NewOffsite([]OffsiteTarget{{Name: "fake", Store: offsiteStore}}, copyCompressor{}, nopLogger{}, false)

			So(uc.Execute(ctx, servers), ShouldBeNil)

			Convey("They are not shipped with the new dumps", func() {
				for name := range offsiteStore.uploads {
					So(name, ShouldNotContainSubstring, "dropped")
				}
				So(offsiteStore.uploads, ShouldHaveLength, 3)
			})
		})

		Convey("Status prints raw replication status without side effects", func() {
			db1.status = "Slave_IO_Running: Yes"
			db2.status = "Slave_IO_Running: No"
			var out bytes.Buffer

			err := newBackup("2026-10-17").Status(ctx, servers, &out)

			So(err, ShouldBeNil)
			So(out.String(), ShouldEqual, "db1\nSlave_IO_Running: Yes\ndb2\nSlave_IO_Running: No\n")
			So(j.For("db1"), ShouldResemble, []string{"status"})
			_, statErr := os.Stat(lockPath)
			So(os.IsNotExist(statErr), ShouldBeTrue)
		})
	})
}
