package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is the config file location used when none is given,
// relative to the user's home directory.
const DefaultPath = ".docpipe/config.toml"

// Config holds every pipeline tunable. Secrets are deliberately absent:
// they come from the environment (see Secrets) so the config file can be
// checked into dotfiles without leaking credentials.
type Config struct {
	// DataDir is where the SQLite index lives. Empty means ~/.docpipe/data.
	DataDir string `toml:"data_dir"`

	Chunking   ChunkingConfig   `toml:"chunking"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Extraction ExtractionConfig `toml:"extraction"`
	FileStore  FileStoreConfig  `toml:"filestore"`
	Mailbox    MailboxConfig    `toml:"mailbox"`
	Schedule   ScheduleConfig   `toml:"schedule"`
}

// ChunkingConfig controls the text splitter.
type ChunkingConfig struct {
	// ChunkSize is the maximum chunk length in runes.
	ChunkSize int `toml:"chunk_size"`
	// Overlap is how many runes adjacent chunks share.
	Overlap int `toml:"overlap"`
}

// EmbeddingConfig controls the Gemini embedding gateway.
type EmbeddingConfig struct {
	Model             string `toml:"model"`
	Dimensions        int    `toml:"dimensions"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// ExtractionConfig controls archive handling in the extraction engine.
type ExtractionConfig struct {
	// MaxArchiveBytes caps cumulative decompressed size per archive.
	MaxArchiveBytes int64 `toml:"max_archive_bytes"`
	// MaxArchiveDepth is the container nesting limit.
	MaxArchiveDepth int `toml:"max_archive_depth"`
}

// FileStoreConfig controls the cloud file store sync driver.
type FileStoreConfig struct {
	// RootPath restricts syncing to one folder subtree. Empty means the
	// whole store.
	RootPath string `toml:"root_path"`
	// MaxFileBytes is the per-file download ceiling.
	MaxFileBytes int64 `toml:"max_file_bytes"`
	// Workers is the item-level concurrency of a sync pass.
	Workers int `toml:"workers"`
}

// MailboxConfig controls the IMAP mailbox sync driver.
type MailboxConfig struct {
	// Addr is the IMAP server address with port, e.g. "imap.example.com:993".
	Addr     string `toml:"addr"`
	Username string `toml:"username"`
	// Folders are the mailbox folders scanned each pass.
	Folders []string `toml:"folders"`
	// MaxAttachmentBytes is the per-attachment size ceiling.
	MaxAttachmentBytes int64 `toml:"max_attachment_bytes"`
}

// ScheduleConfig controls the periodic sync runner.
type ScheduleConfig struct {
	// IntervalMinutes is the period between full sync passes.
	IntervalMinutes int `toml:"interval_minutes"`
}

// Default returns the configuration used when no file exists. The zero
// values of optional fields (DataDir, RootPath, Addr) keep their
// package-level defaults downstream.
func Default() *Config {
	return &Config{
		Chunking: ChunkingConfig{
			ChunkSize: 500,
			Overlap:   50,
		},
		Embedding: EmbeddingConfig{
			Model:             "text-embedding-004",
			Dimensions:        768,
			RequestsPerMinute: 25,
		},
		Extraction: ExtractionConfig{
			MaxArchiveBytes: 50 << 20,
			MaxArchiveDepth: 2,
		},
		FileStore: FileStoreConfig{
			MaxFileBytes: 10 << 20,
			Workers:      4,
		},
		Mailbox: MailboxConfig{
			Folders:            []string{"INBOX", "Sent"},
			MaxAttachmentBytes: 10 << 20,
		},
		Schedule: ScheduleConfig{
			IntervalMinutes: 30,
		},
	}
}

// Load reads the TOML config at path, layering it over the defaults.
// If path is empty the default location is used. A missing file is not
// an error: the defaults are returned, so first runs need no setup.
func Load(path string) (*Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, DefaultPath)
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Chunking.ChunkSize <= 0 {
		return errors.New("chunking.chunk_size must be positive")
	}
	if c.Chunking.Overlap < 0 {
		return errors.New("chunking.overlap must not be negative")
	}
	if c.Embedding.Dimensions <= 0 {
		return errors.New("embedding.dimensions must be positive")
	}
	if c.FileStore.Workers < 0 {
		return errors.New("filestore.workers must not be negative")
	}
	if c.Schedule.IntervalMinutes <= 0 {
		return errors.New("schedule.interval_minutes must be positive")
	}
	return nil
}
