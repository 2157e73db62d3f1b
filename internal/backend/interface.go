package backend

import (
	"context"

	"nozze/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the exporter instance and optional cleanup function
type Result struct {
	Exporter sheets.Exporter
	Cleanup  CleanupFunc
}

// Factory creates export backends based on configuration
type Factory interface {
	CreateExporter(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// Google Sheets specific
	GoogleSpreadsheetID   string
	GoogleBudgetSheet     string
	GoogleSeatingSheet    string
	GoogleCredentialsJSON string
	GoogleCredentialsFile string
}

// BackendType represents the type of export backend
type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
