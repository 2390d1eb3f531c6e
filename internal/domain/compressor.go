package domain

// Compressor shrinks a dump before it is shipped offsite.
type Compressor interface {
	Compress(sourcePath, destPath string) error
}
