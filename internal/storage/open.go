package storage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"
	"gopkg.in/yaml.v3"
)

// Supported drivers.
const (
	DriverFile   = "file"
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a Store backend.
type Options struct {
	Driver   string
	Path     string // file driver
	DSN      string // sqlite driver
	RedisURL string // redis driver
}

// Open creates the Store described by opts.
func Open(opts Options) (Store, error) {
	switch opts.Driver {
	case DriverFile, "":
		return NewFileStore(opts.Path), nil
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(opts.DSN)
	case DriverRedis:
		return NewRedisStore(opts.RedisURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Export writes threads to w in the given format.
func Export(w io.Writer, threads comment.Threads, format string) error {
	if threads == nil {
		threads = comment.Threads{}
	}

	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(threads)
	case FormatYAML:
		return exportYAML(w, threads)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// exportYAML round-trips through JSON so the YAML document uses the same field names and timestamp form.
func exportYAML(w io.Writer, threads comment.Threads) error {
	data, err := json.Marshal(threads)
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(doc); err != nil {
		return err
	}

	return enc.Close()
}
