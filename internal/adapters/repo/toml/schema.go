package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int            `toml:"version"`
	Records []recordSchema `toml:"records"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported records schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type recordSchema struct {
	ID        string `toml:"id"`
	Timestamp string `toml:"timestamp"`
}
