package config

import (
	"github.com/gotidy/ptr"

	"regtree/internal/domain"
)

type Source string

const (
	SourceFS      Source = "fs"
	SourceCatalog Source = "catalog"
	SourceMock    Source = "mock"
)

type Config struct {
	Source     Source `yaml:"source"`
	Path       string `yaml:"path"`
	Catalog    string `yaml:"catalog"`
	PageSize   int    `yaml:"pageSize"`
	ShowHidden bool   `yaml:"showHidden"`
	Sort       string `yaml:"sort"`
	Theme      string `yaml:"theme"`
	Search     bool   `yaml:"search"`
	CacheSize  int    `yaml:"cacheSize"`
	LogFile    string `yaml:"logFile"`
	LogLevel   string `yaml:"logLevel"`
	Watch      bool   `yaml:"watch"`
}

type fileConfig struct {
	Source     *string `yaml:"source"`
	Path       *string `yaml:"path"`
	Catalog    *string `yaml:"catalog"`
	PageSize   *int    `yaml:"pageSize"`
	ShowHidden *bool   `yaml:"showHidden"`
	Sort       *string `yaml:"sort"`
	Theme      *string `yaml:"theme"`
	Search     *bool   `yaml:"search"`
	CacheSize  *int    `yaml:"cacheSize"`
	LogFile    *string `yaml:"logFile"`
	LogLevel   *string `yaml:"logLevel"`
	Watch      *bool   `yaml:"watch"`
}

// Session is what survives between runs for one root.
type Session struct {
	Version  int      `yaml:"version"`
	Root     string   `yaml:"root"`
	Expanded []string `yaml:"expanded"`
	Active   string   `yaml:"active,omitempty"`
	Sort     string   `yaml:"sort,omitempty"`
}

const sessionVersion = 1

// NodeConfig is the global filter set every fetch starts from.
func (config Config) NodeConfig() domain.NodeConfig {
	var node domain.NodeConfig
	if config.Sort != "" {
		node.Sort = ptr.String(config.Sort)
	}
	return node
}
