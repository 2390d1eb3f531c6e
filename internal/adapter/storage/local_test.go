package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLocalDir(t *testing.T) {
	Convey("Given a local offsite directory", t, func() {
		tempDir := t.TempDir()
		ctx := context.Background()

		Convey("NewLocal creates a missing directory", func() {
			root := filepath.Join(tempDir, "mnt", "offsite")
			dir, err := NewLocal(root)
			So(err, ShouldBeNil)
			So(dir.root, ShouldEqual, root)

			info, err := os.Stat(root)
			So(err, ShouldBeNil)
			So(info.IsDir(), ShouldBeTrue)
		})

		Convey("NewLocal needs a path", func() {
			_, err := NewLocal("")
			So(err, ShouldNotBeNil)
		})

		Convey("Put", func() {
			root := filepath.Join(tempDir, "offsite")
			dir, err := NewLocal(root)
			So(err, ShouldBeNil)

			Convey("copies the dump without leaving a partial file", func() {
				source := filepath.Join(tempDir, "appdb.sql")
				So(os.WriteFile(source, []byte("CREATE TABLE t"), 0644), ShouldBeNil)

				So(dir.Put(ctx, source, "db1_appdb_20261017_020000.sql"), ShouldBeNil)

				content, err := os.ReadFile(filepath.Join(root, "db1_appdb_20261017_020000.sql"))
				So(err, ShouldBeNil)
				So(string(content), ShouldEqual, "CREATE TABLE t")

				_, err = os.Stat(filepath.Join(root, "db1_appdb_20261017_020000.sql"+partialSuffix))
				So(os.IsNotExist(err), ShouldBeTrue)
			})

			Convey("fails on a missing source", func() {
				err := dir.Put(ctx, filepath.Join(tempDir, "missing.sql"), "x.sql")
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to open source")
			})
		})

		Convey("List skips directories and partial copies", func() {
			dir, err := NewLocal(tempDir)
			So(err, ShouldBeNil)

			So(os.WriteFile(filepath.Join(tempDir, "a.sql.gz"), []byte("x"), 0644), ShouldBeNil)
			So(os.WriteFile(filepath.Join(tempDir, "b.sql.gz"), []byte("x"), 0644), ShouldBeNil)
			So(os.WriteFile(filepath.Join(tempDir, "c.sql.gz.part"), []byte("x"), 0644), ShouldBeNil)
			So(os.Mkdir(filepath.Join(tempDir, "subdir"), 0755), ShouldBeNil)

			names, err := dir.List(ctx)
			So(err, ShouldBeNil)
			So(names, ShouldResemble, []string{"a.sql.gz", "b.sql.gz"})
		})

		Convey("Delete", func() {
			dir, err := NewLocal(tempDir)
			So(err, ShouldBeNil)

			Convey("removes an existing copy", func() {
				So(os.WriteFile(filepath.Join(tempDir, "old.sql.gz"), []byte("x"), 0644), ShouldBeNil)
				So(dir.Delete(ctx, "old.sql.gz"), ShouldBeNil)

				_, err := os.Stat(filepath.Join(tempDir, "old.sql.gz"))
				So(os.IsNotExist(err), ShouldBeTrue)
			})

			Convey("fails on a missing copy", func() {
				err := dir.Delete(ctx, "nonexistent.sql.gz")
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "failed to delete nonexistent.sql.gz")
			})
		})

		Convey("ListOlderThan returns only copies past the cutoff", func() {
			dir, err := NewLocal(tempDir)
			So(err, ShouldBeNil)

			old := filepath.Join(tempDir, "old.sql.gz")
			So(os.WriteFile(old, []byte("x"), 0644), ShouldBeNil)
			past := time.Now().Add(-40 * 24 * time.Hour)
			So(os.Chtimes(old, past, past), ShouldBeNil)
			So(os.WriteFile(filepath.Join(tempDir, "new.sql.gz"), []byte("x"), 0644), ShouldBeNil)

			names, err := dir.ListOlderThan(ctx, time.Now().Add(-28*24*time.Hour))
			So(err, ShouldBeNil)
			So(names, ShouldResemble, []string{"old.sql.gz"})
		})
	})
}
