package compressor

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGzipCompressor(t *testing.T) {
	Convey("Given a GzipCompressor", t, func() {
		compressor := NewGzip()

		tempDir, err := os.MkdirTemp("", "gzip_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		Convey("When compressing a dump", func() {
			dump := []byte(strings.Repeat("INSERT INTO t VALUES (1);\n", 200))
			source := filepath.Join(tempDir, "appdb.sql")
			So(os.WriteFile(source, dump, 0644), ShouldBeNil)
			output := filepath.Join(tempDir, "appdb.sql.gz")

			err := compressor.Compress(source, output)

			Convey("It should produce a smaller valid gzip stream", func() {
				So(err, ShouldBeNil)

				info, err := os.Stat(output)
				So(err, ShouldBeNil)
				So(info.Size(), ShouldBeLessThan, int64(len(dump)))

				gzipFile, err := os.Open(output)
				So(err, ShouldBeNil)
				defer gzipFile.Close()

				gzipReader, err := gzip.NewReader(gzipFile)
				So(err, ShouldBeNil)
				defer gzipReader.Close()
				So(gzipReader.Name, ShouldEqual, "appdb.sql")

				var decompressed bytes.Buffer
				_, err = decompressed.ReadFrom(gzipReader)
				So(err, ShouldBeNil)
				So(decompressed.Bytes(), ShouldResemble, dump)
			})
		})

		Convey("When the source file does not exist", func() {
			err := compressor.Compress(filepath.Join(tempDir, "missing.sql"), filepath.Join(tempDir, "out.gz"))

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "failed to open source file")
		})

		Convey("When the destination directory does not exist", func() {
			source := filepath.Join(tempDir, "appdb.sql")
			So(os.WriteFile(source, []byte("x"), 0644), ShouldBeNil)

			err := compressor.Compress(source, filepath.Join(tempDir, "missing", "out.gz"))

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "failed to create dest file")
		})
	})
}
