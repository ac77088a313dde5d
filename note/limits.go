package note

// Limits bounds the resources a single container may claim.
type Limits struct {
	// Maximum file size in bytes. Default: 512 MB.
	MaxFileSize int64

	// Maximum number of pages. Default: 10,000.
	MaxPages int

	// Maximum size of one block payload in bytes. Default: 64 MB.
	MaxBlockSize int64

	// Maximum number of title or link records per file. Default: 100,000.
	MaxRecords int
}

// DefaultLimits returns limits comfortably above anything the device writes.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:  512 * 1024 * 1024,
		MaxPages:     10000,
		MaxBlockSize: 64 * 1024 * 1024,
		MaxRecords:   100000,
	}
}
