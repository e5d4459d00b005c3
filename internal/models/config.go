package models

// Compression names accepted by the compression config key
const (
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
	CompressionXz   = "xz"
)

// Config contains the settings read from rmrf.cfg
type Config struct {
	// Archive stores
	RmrfPath string // Archives of removed files
	BkupPath string // Archives of backed up files

	// Behavior
	Sudo        bool   // Retry removals with sudo on permission errors
	Keep        int    // Days an rmrf archive is kept before harvesting
	Threshold   int    // Disk usage percent above which the oldest archives are harvested, 0 disables
	Compression string // gzip, zstd or xz

	// Source of the settings, empty when defaults were used
	Path string
}

// DefaultConfig returns the settings used when no config file exists
func DefaultConfig() Config {
	return Config{
		RmrfPath:    "/var/tmp/rmrf",
		BkupPath:    "/var/tmp/bkup",
		Sudo:        false,
		Keep:        21,
		Threshold:   70,
		Compression: CompressionGzip,
	}
}
