package config

import (
	"github.com/spf13/pflag"
)

// Flags holds command line values. Only flags the user changed override
// the loaded config.
type Flags struct {
	set    *pflag.FlagSet
	values Config
	source string
}

func BindFlags(set *pflag.FlagSet) *Flags {
	defaults := DefaultConfig()
	flags := &Flags{set: set}
	set.StringVar(&flags.source, "source", string(defaults.Source), "Tree source: fs, catalog or mock")
	set.StringVarP(&flags.values.Path, "path", "p", defaults.Path, "Root directory for the fs source")
	set.StringVar(&flags.values.Catalog, "catalog", defaults.Catalog, "SQLite catalog file for the catalog source")
	set.IntVar(&flags.values.PageSize, "page-size", defaults.PageSize, "Rows fetched per page")
	set.BoolVar(&flags.values.ShowHidden, "show-hidden", defaults.ShowHidden, "Show hidden files")
	set.StringVar(&flags.values.Sort, "sort", defaults.Sort, "Sort as field,order")
	set.StringVar(&flags.values.Theme, "theme", defaults.Theme, "Color theme: dark or light")
	set.BoolVar(&flags.values.Search, "search", defaults.Search, "Show the global search row")
	set.IntVar(&flags.values.CacheSize, "cache-size", defaults.CacheSize, "Cached listings, 0 disables the cache")
	set.StringVar(&flags.values.LogFile, "log-file", defaults.LogFile, "Write logs to this file")
	set.StringVar(&flags.values.LogLevel, "log-level", defaults.LogLevel, "Log level")
	set.BoolVar(&flags.values.Watch, "watch", defaults.Watch, "Refresh open folders when they change on disk")
	return flags
}

func (flags *Flags) Apply(base Config) Config {
	changed := func(name string) bool {
		return flags.set.Changed(name)
	}
	if changed("source") {
		base.Source = Source(flags.source)
	}
	if changed("path") {
		base.Path = flags.values.Path
	}
	if changed("catalog") {
		base.Catalog = flags.values.Catalog
	}
	if changed("page-size") {
		base.PageSize = flags.values.PageSize
	}
	if changed("show-hidden") {
		base.ShowHidden = flags.values.ShowHidden
	}
	if changed("sort") {
		base.Sort = flags.values.Sort
	}
	if changed("theme") {
		base.Theme = flags.values.Theme
	}
	if changed("search") {
		base.Search = flags.values.Search
	}
	if changed("cache-size") {
		base.CacheSize = flags.values.CacheSize
	}
	if changed("log-file") {
		base.LogFile = flags.values.LogFile
	}
	if changed("log-level") {
		base.LogLevel = flags.values.LogLevel
	}
	if changed("watch") {
		base.Watch = flags.values.Watch
	}
	return base
}
