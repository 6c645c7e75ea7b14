package domain

type Compressor interface {
	Compress(sourcePath, destPath string) error
	Decompress(sourcePath, destPath string) error
	// Ext is the suffix appended to compressed file names, e.g. ".gz".
	Ext() string
}
