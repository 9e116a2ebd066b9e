package app

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"regtree/internal/config"
	"regtree/internal/domain"
	"regtree/internal/services"
	"regtree/internal/tree"
	"regtree/internal/ui"
)

// source is one backend the tree can browse.
type source struct {
	root        string
	title       string
	fetcher     services.Fetcher
	sortOptions []ui.SortOption
	header      func(node *domain.TreeNode) string
	action      func(node *domain.TreeNode) string
}

func Run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	src, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	fetcher := src.fetcher
	if cfg.CacheSize > 0 {
		cached, err := services.NewCachedFetcher(fetcher, cfg.CacheSize)
		if err != nil {
			return fmt.Errorf("cache: %w", err)
		}
		fetcher = cached
	}
	defer closeFetcher(fetcher, logger)

	session, err := config.LoadSession(src.root)
	if err != nil {
		logger.WithError(err).Warn("session not loaded")
	}

	options := ui.Options{
		Title:            src.title,
		Root:             src.root,
		Theme:            cfg.Theme,
		RenderNodeHeader: src.header,
		RenderNodeAction: src.action,
		Restore:          session.Expanded,
		Active:           session.Active,
		Logger:           logger.WithField("component", "ui"),
		OnClick: func(node *domain.TreeNode) {
			logger.WithFields(logrus.Fields{"node": node.ID, "type": node.Type.String()}).Debug("click")
		},
	}
	if cfg.Search {
		sort := cfg.Sort
		if session.Sort != "" {
			sort = session.Sort
		}
		options.Search = &ui.GlobalSearch{SortOptions: src.sortOptions, Sort: sort}
	} else {
		options.Filters = cfg.NodeConfig()
	}

	var watcher *services.Watcher
	if cfg.Watch && cfg.Source == config.SourceFS {
		watcher, err = services.NewWatcher(services.WithOnError(func(err error) {
			logger.WithError(err).Debug("watch")
		}))
		if err != nil {
			logger.WithError(err).Warn("watcher unavailable")
		} else {
			defer watcher.Close()
			go watcher.Run(ctx)
			options.Watcher = watcher
		}
	}

	controller := tree.NewController(tree.WithLogger(logger.WithField("component", "tree")))
	model := ui.NewModel(controller, fetcher, options)
	if watcher != nil {
		model = model.WithChanges(watcher)
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	finalModel, err := program.Run()
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	if provider, ok := finalModel.(ui.SessionProvider); ok {
		if err := config.SaveSession(provider.SessionSnapshot()); err != nil {
			logger.WithError(err).Warn("session not saved")
		}
	}
	return nil
}

// Seed loads a YAML catalog file into the configured SQLite catalog.
func Seed(ctx context.Context, cfg config.Config, path string, out io.Writer) error {
	seed, err := services.LoadSeedFile(path)
	if err != nil {
		return err
	}
	catalog, err := services.OpenCatalog(ctx, cfg.Catalog, cfg.PageSize)
	if err != nil {
		return err
	}
	defer catalog.Close()
	written, err := catalog.Seed(ctx, seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "seeded %d rows into %s\n", written, cfg.Catalog)
	return nil
}

func openSource(ctx context.Context, cfg config.Config) (source, error) {
	switch cfg.Source {
	case config.SourceCatalog:
		catalog, err := services.OpenCatalog(ctx, cfg.Catalog, cfg.PageSize)
		if err != nil {
			return source{}, err
		}
		return source{
			root:    "registries",
			title:   "Registries",
			fetcher: catalog,
			sortOptions: []ui.SortOption{
				{Label: "Name A-Z", Value: "name,asc"},
				{Label: "Name Z-A", Value: "name,desc"},
				{Label: "Recently updated", Value: "updated,desc"},
				{Label: "Most artifacts", Value: "artifacts,desc"},
			},
			header: func(node *domain.TreeNode) string {
				return "Σ " + node.Label
			},
			action: catalogAction,
		}, nil
	case config.SourceMock:
		return source{
			root:    "demo",
			title:   "Demo",
			fetcher: services.NewDemoFetcher(cfg.PageSize),
			sortOptions: []ui.SortOption{
				{Label: "Name A-Z", Value: "name,asc"},
				{Label: "Name Z-A", Value: "name,desc"},
			},
		}, nil
	default:
		return source{
			root:  services.RootPath(cfg.Path),
			title: "Files",
			fetcher: services.NewFSFetcher(
				services.WithShowHidden(cfg.ShowHidden),
				services.WithPageSize(cfg.PageSize),
			),
			sortOptions: []ui.SortOption{
				{Label: "Name A-Z", Value: "name,asc"},
				{Label: "Name Z-A", Value: "name,desc"},
				{Label: "Largest", Value: "size,asc"},
				{Label: "Newest", Value: "mod,asc"},
			},
			action: fileAction,
		}, nil
	}
}

func catalogAction(node *domain.TreeNode) string {
	entry, ok := node.Metadata.(services.CatalogEntry)
	if !ok {
		return ""
	}
	switch entry.Entity {
	case services.EntityRegistry:
		return fmt.Sprintf("%s · %d", entry.PackageType, entry.Children)
	case services.EntityArtifact:
		return fmt.Sprintf("%d versions", entry.Children)
	case services.EntityVersion, services.EntityDigest:
		if entry.Size > 0 {
			return humanize.Bytes(uint64(entry.Size))
		}
	}
	return ""
}

func fileAction(node *domain.TreeNode) string {
	entry, ok := node.Metadata.(services.FileEntry)
	if !ok || entry.IsDir {
		return ""
	}
	return humanize.Bytes(uint64(entry.SizeBytes))
}

func closeFetcher(fetcher services.Fetcher, logger logrus.FieldLogger) {
	closer, ok := fetcher.(services.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logger.WithError(err).Warn("close source")
	}
}
