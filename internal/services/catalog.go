package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"regtree/internal/domain"
)

type EntityType string

const (
	EntityRegistry EntityType = "registry"
	EntityArtifact EntityType = "artifact"
	EntityVersion  EntityType = "version"
	EntityDigest   EntityType = "digest"
)

const PackageDocker = "DOCKER"

// CatalogEntry is the metadata carried by catalog rows.
type CatalogEntry struct {
	Entity      EntityType
	ID          int64
	Registry    string
	Artifact    string
	Version     string
	Digest      string
	PackageType string
	Description string
	OSArch      string
	Size        int64
	Downloads   int64
	Children    int64
	UpdatedAt   time.Time
}

// Catalog serves an artifact registry hierarchy (registries, artifacts,
// versions, digests) out of SQLite.
type Catalog struct {
	db       *sqlx.DB
	pageSize int
}

func OpenCatalog(ctx context.Context, path string, pageSize int) (*Catalog, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	catalog := &Catalog{db: db, pageSize: pageSize}
	if err := catalog.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return catalog, nil
}

func (catalog *Catalog) Close() error {
	return catalog.db.Close()
}

func (catalog *Catalog) migrate(ctx context.Context) error {
	for _, statement := range strings.Split(catalogSchema, ";") {
		if strings.TrimSpace(statement) == "" {
			continue
		}
		if _, err := catalog.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migrate catalog: %w", err)
		}
	}
	return nil
}

func (catalog *Catalog) Fetch(ctx context.Context, req FetchRequest) (domain.FetchResult, error) {
	if req.Node == nil {
		return domain.FetchResult{}, ErrUnsupportedNode
	}
	entry, ok := req.Node.Metadata.(CatalogEntry)
	if !ok {
		if req.Node.Parent != nil {
			return domain.FetchResult{}, ErrUnsupportedNode
		}
		return catalog.registries(ctx, req)
	}
	switch entry.Entity {
	case EntityRegistry:
		return catalog.artifacts(ctx, req, entry)
	case EntityArtifact:
		return catalog.versions(ctx, req, entry)
	case EntityVersion:
		return catalog.digests(ctx, req, entry)
	default:
		return domain.FetchResult{}, ErrUnsupportedNode
	}
}

type registryRow struct {
	ID            int64  `db:"registry_id"`
	Name          string `db:"registry_name"`
	PackageType   string `db:"registry_package_type"`
	Description   string `db:"registry_description"`
	UpdatedAt     int64  `db:"registry_updated_at"`
	ArtifactCount int64  `db:"artifact_count"`
}

var registrySortFields = map[string]string{
	"name":      "r.registry_name",
	"updated":   "r.registry_updated_at",
	"artifacts": "artifact_count",
}

func (catalog *Catalog) registries(ctx context.Context, req FetchRequest) (domain.FetchResult, error) {
	filter := sq.And{}
	if search := req.Filters.SearchOrEmpty(); search != "" {
		filter = append(filter, sq.Expr("r.registry_name LIKE ? ESCAPE '\\'", containsPattern(search)))
	}
	if types := splitList(req.Filters.Filters["packageType"]); len(types) > 0 {
		filter = append(filter, sq.Eq{"r.registry_package_type": types})
	}

	query := sq.Select(
		"r.registry_id",
		"r.registry_name",
		"r.registry_package_type",
		"r.registry_description",
		"r.registry_updated_at",
		"(SELECT COUNT(*) FROM artifacts a WHERE a.artifact_registry_id = r.registry_id) AS artifact_count",
	).From("registries r").Where(filter)
	query = orderBy(query, req.Filters.SortOrEmpty(), registrySortFields, "r.registry_name")

	var rows []registryRow
	total, err := catalog.page(ctx, query, sq.Select("COUNT(*)").From("registries r").Where(filter), req, &rows)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("list registries: %w", err)
	}

	parent := req.Node
	page := req.Filters.PageOrZero()
	data := make([]domain.Node, 0, len(rows)+1)
	if page == 0 {
		data = append(data, domain.Node{
			ID:       parent.ID + "?totalCount",
			Label:    registryCountLabel(total),
			Value:    fmt.Sprint(total),
			Type:     domain.NodeHeader,
			Metadata: total,
		})
	}
	for _, row := range rows {
		data = append(data, domain.Node{
			ID:    parent.ID + "/" + url.PathEscape(row.Name),
			Label: row.Name,
			Value: row.Name,
			Type:  domain.NodeFolder,
			Metadata: CatalogEntry{
				Entity:      EntityRegistry,
				ID:          row.ID,
				Registry:    row.Name,
				PackageType: row.PackageType,
				Description: row.Description,
				Children:    row.ArtifactCount,
				UpdatedAt:   unixTime(row.UpdatedAt),
			},
		})
	}
	return catalog.result(data, total, page), nil
}

type artifactRow struct {
	ID           int64  `db:"artifact_id"`
	Name         string `db:"artifact_name"`
	Downloads    int64  `db:"artifact_downloads"`
	UpdatedAt    int64  `db:"artifact_updated_at"`
	VersionCount int64  `db:"version_count"`
}

var artifactSortFields = map[string]string{
	"name":      "a.artifact_name",
	"updated":   "a.artifact_updated_at",
	"downloads": "a.artifact_downloads",
}

func (catalog *Catalog) artifacts(ctx context.Context, req FetchRequest, parentEntry CatalogEntry) (domain.FetchResult, error) {
	filter := sq.And{sq.Eq{"a.artifact_registry_id": parentEntry.ID}}
	if search := req.Filters.SearchOrEmpty(); search != "" {
		filter = append(filter, sq.Expr("a.artifact_name LIKE ? ESCAPE '\\'", containsPattern(search)))
	}
	query := sq.Select(
		"a.artifact_id",
		"a.artifact_name",
		"a.artifact_downloads",
		"a.artifact_updated_at",
		"(SELECT COUNT(*) FROM versions v WHERE v.version_artifact_id = a.artifact_id) AS version_count",
	).From("artifacts a").Where(filter)
	query = orderBy(query, req.Filters.SortOrEmpty(), artifactSortFields, "a.artifact_name")

	var rows []artifactRow
	total, err := catalog.page(ctx, query, sq.Select("COUNT(*)").From("artifacts a").Where(filter), req, &rows)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("list artifacts of %s: %w", parentEntry.Registry, err)
	}

	data := make([]domain.Node, 0, len(rows))
	for _, row := range rows {
		entry := parentEntry
		entry.Entity = EntityArtifact
		entry.ID = row.ID
		entry.Artifact = row.Name
		entry.Downloads = row.Downloads
		entry.Children = row.VersionCount
		entry.UpdatedAt = unixTime(row.UpdatedAt)
		data = append(data, domain.Node{
			ID:       req.Node.ID + "/" + url.PathEscape(row.Name),
			Label:    row.Name,
			Value:    row.Name,
			Type:     domain.NodeFolder,
			Metadata: entry,
		})
	}
	return catalog.result(data, total, req.Filters.PageOrZero()), nil
}

type versionRow struct {
	ID          int64  `db:"version_id"`
	Name        string `db:"version_name"`
	Size        int64  `db:"version_size"`
	UpdatedAt   int64  `db:"version_updated_at"`
	DigestCount int64  `db:"digest_count"`
}

var versionSortFields = map[string]string{
	"name":    "v.version_name",
	"updated": "v.version_updated_at",
	"size":    "v.version_size",
}

func (catalog *Catalog) versions(ctx context.Context, req FetchRequest, parentEntry CatalogEntry) (domain.FetchResult, error) {
	filter := sq.And{sq.Eq{"v.version_artifact_id": parentEntry.ID}}
	if search := req.Filters.SearchOrEmpty(); search != "" {
		filter = append(filter, sq.Expr("v.version_name LIKE ? ESCAPE '\\'", containsPattern(search)))
	}
	query := sq.Select(
		"v.version_id",
		"v.version_name",
		"v.version_size",
		"v.version_updated_at",
		"(SELECT COUNT(*) FROM digests d WHERE d.digest_version_id = v.version_id) AS digest_count",
	).From("versions v").Where(filter)
	query = orderBy(query, req.Filters.SortOrEmpty(), versionSortFields, "v.version_updated_at DESC, v.version_name")

	var rows []versionRow
	total, err := catalog.page(ctx, query, sq.Select("COUNT(*)").From("versions v").Where(filter), req, &rows)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("list versions of %s: %w", parentEntry.Artifact, err)
	}

	nodeType := domain.NodeFile
	if strings.EqualFold(parentEntry.PackageType, PackageDocker) {
		nodeType = domain.NodeFolder
	}
	data := make([]domain.Node, 0, len(rows))
	for _, row := range rows {
		entry := parentEntry
		entry.Entity = EntityVersion
		entry.ID = row.ID
		entry.Version = row.Name
		entry.Size = row.Size
		entry.Children = row.DigestCount
		entry.UpdatedAt = unixTime(row.UpdatedAt)
		data = append(data, domain.Node{
			ID:       req.Node.ID + "/" + url.PathEscape(row.Name),
			Label:    row.Name,
			Value:    row.Name,
			Type:     nodeType,
			Metadata: entry,
		})
	}
	return catalog.result(data, total, req.Filters.PageOrZero()), nil
}

type digestRow struct {
	Value  string `db:"digest_value"`
	OSArch string `db:"digest_os_arch"`
	Size   int64  `db:"digest_size"`
}

func (catalog *Catalog) digests(ctx context.Context, req FetchRequest, parentEntry CatalogEntry) (domain.FetchResult, error) {
	filter := sq.And{sq.Eq{"d.digest_version_id": parentEntry.ID}}
	query := sq.Select("d.digest_value", "d.digest_os_arch", "d.digest_size").
		From("digests d").
		Where(filter).
		OrderBy("d.digest_os_arch", "d.digest_value")

	var rows []digestRow
	total, err := catalog.page(ctx, query, sq.Select("COUNT(*)").From("digests d").Where(filter), req, &rows)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("list digests of %s: %w", parentEntry.Version, err)
	}

	data := make([]domain.Node, 0, len(rows))
	for _, row := range rows {
		entry := parentEntry
		entry.Entity = EntityDigest
		entry.Digest = row.Value
		entry.OSArch = row.OSArch
		entry.Size = row.Size
		entry.Children = 0
		label := ShortDigest(row.Value)
		if row.OSArch != "" {
			label += " " + row.OSArch
		}
		data = append(data, domain.Node{
			ID:       req.Node.ID + "/" + url.PathEscape(row.Value),
			Label:    label,
			Value:    row.Value,
			Type:     domain.NodeFile,
			Metadata: entry,
		})
	}
	return catalog.result(data, total, req.Filters.PageOrZero()), nil
}

// page runs query for the requested page into dst and returns the total
// row count from countQuery.
func (catalog *Catalog) page(ctx context.Context, query, countQuery sq.SelectBuilder, req FetchRequest, dst interface{}) (int64, error) {
	page := req.Filters.PageOrZero()
	if page < 0 {
		page = 0
	}
	query = query.Limit(uint64(catalog.pageSize)).Offset(uint64(page * catalog.pageSize))
	statement, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	if err := catalog.db.SelectContext(ctx, dst, statement, args...); err != nil {
		return 0, err
	}
	statement, args, err = countQuery.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var total int64
	if err := catalog.db.GetContext(ctx, &total, statement, args...); err != nil {
		return 0, err
	}
	return total, nil
}

func (catalog *Catalog) result(data []domain.Node, total int64, page int) domain.FetchResult {
	pageCount := (total + int64(catalog.pageSize) - 1) / int64(catalog.pageSize)
	if pageCount == 0 {
		pageCount = 1
	}
	return domain.FetchResult{
		Data:       data,
		Pagination: &domain.Pagination{Page: page, HasMore: pageCount > int64(page)+1},
	}
}

func orderBy(query sq.SelectBuilder, value string, fields map[string]string, fallback string) sq.SelectBuilder {
	field, order := splitSort(value)
	column, ok := fields[field]
	if !ok {
		return query.OrderBy(fallback)
	}
	return query.OrderBy(column + " " + strings.ToUpper(order))
}

func ShortDigest(digest string) string {
	_, hex, found := strings.Cut(digest, ":")
	if !found {
		hex = digest
	}
	if len(hex) > 12 {
		hex = hex[:12]
	}
	return hex
}

func registryCountLabel(total int64) string {
	if total == 1 {
		return "1 registry"
	}
	return fmt.Sprintf("%d registries", total)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches term literally anywhere in a column compared with
// LIKE ... ESCAPE '\'.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func unixTime(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(value, 0)
}
