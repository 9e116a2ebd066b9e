package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"regtree/internal/services"
)

const (
	configDirName   = "regtree"
	configFileName  = "config.yaml"
	sessionFileName = "session.yaml"
)

var ErrInvalidConfig = errors.New("invalid config")

func DefaultConfig() Config {
	return Config{
		Source:    SourceFS,
		Path:      ".",
		Catalog:   "regtree.db",
		PageSize:  services.DefaultPageSize,
		Sort:      "name,asc",
		Theme:     "dark",
		Search:    true,
		CacheSize: services.DefaultCacheSize,
		LogLevel:  "info",
	}
}

func ConfigPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, configDirName, configFileName), nil
}

func SessionPath() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, configDirName, sessionFileName), nil
}

func LoadConfig() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadConfigFrom(path)
}

// LoadConfigFrom overlays the file at path on the defaults. A missing file is
// not an error.
func LoadConfigFrom(path string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}
	var stored fileConfig
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return config, fmt.Errorf("parse %s: %w", path, err)
	}
	merged := mergeConfig(config, stored)
	if err := merged.Validate(); err != nil {
		return config, fmt.Errorf("%s: %w", path, err)
	}
	return merged, nil
}

func SaveConfig(config Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return writeYAML(path, config)
}

func mergeConfig(base Config, stored fileConfig) Config {
	merged := base
	if stored.Source != nil {
		merged.Source = Source(strings.ToLower(*stored.Source))
	}
	if stored.Path != nil {
		merged.Path = *stored.Path
	}
	if stored.Catalog != nil {
		merged.Catalog = *stored.Catalog
	}
	if stored.PageSize != nil {
		merged.PageSize = *stored.PageSize
	}
	if stored.ShowHidden != nil {
		merged.ShowHidden = *stored.ShowHidden
	}
	if stored.Sort != nil {
		merged.Sort = *stored.Sort
	}
	if stored.Theme != nil {
		merged.Theme = *stored.Theme
	}
	if stored.Search != nil {
		merged.Search = *stored.Search
	}
	if stored.CacheSize != nil {
		merged.CacheSize = *stored.CacheSize
	}
	if stored.LogFile != nil {
		merged.LogFile = *stored.LogFile
	}
	if stored.LogLevel != nil {
		merged.LogLevel = *stored.LogLevel
	}
	if stored.Watch != nil {
		merged.Watch = *stored.Watch
	}
	return merged
}

func (config Config) Validate() error {
	switch config.Source {
	case SourceFS, SourceCatalog, SourceMock:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, config.Source)
	}
	if config.PageSize <= 0 {
		return fmt.Errorf("%w: pageSize must be positive", ErrInvalidConfig)
	}
	if config.CacheSize < 0 {
		return fmt.Errorf("%w: cacheSize must not be negative", ErrInvalidConfig)
	}
	if config.Sort != "" {
		field, order, found := strings.Cut(config.Sort, ",")
		if strings.TrimSpace(field) == "" {
			return fmt.Errorf("%w: sort %q has no field", ErrInvalidConfig, config.Sort)
		}
		if found {
			switch strings.ToLower(strings.TrimSpace(order)) {
			case "asc", "desc":
			default:
				return fmt.Errorf("%w: sort order %q", ErrInvalidConfig, order)
			}
		}
	}
	return nil
}

// LoadSession returns the saved session for root, or an empty one when none
// was saved or it belongs to another root.
func LoadSession(root string) (Session, error) {
	path, err := SessionPath()
	if err != nil {
		return Session{Root: root}, err
	}
	return LoadSessionFrom(path, root)
}

func LoadSessionFrom(path, root string) (Session, error) {
	empty := Session{Version: sessionVersion, Root: root}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return empty, err
	}
	var session Session
	if err := yaml.Unmarshal(data, &session); err != nil {
		return empty, fmt.Errorf("parse %s: %w", path, err)
	}
	if session.Version != sessionVersion || session.Root != root {
		return empty, nil
	}
	return session, nil
}

func SaveSession(session Session) error {
	path, err := SessionPath()
	if err != nil {
		return err
	}
	return SaveSessionTo(path, session)
}

func SaveSessionTo(path string, session Session) error {
	session.Version = sessionVersion
	return writeYAML(path, session)
}

func writeYAML(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
