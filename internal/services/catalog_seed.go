package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
)

// CatalogSeed is the YAML document accepted by Seed.
type CatalogSeed struct {
	Registries []SeedRegistry `yaml:"registries"`
}

type SeedRegistry struct {
	Name        string         `yaml:"name"`
	PackageType string         `yaml:"packageType"`
	Description string         `yaml:"description"`
	UpdatedAt   time.Time      `yaml:"updatedAt"`
	Artifacts   []SeedArtifact `yaml:"artifacts"`
}

type SeedArtifact struct {
	Name      string        `yaml:"name"`
	Downloads int64         `yaml:"downloads"`
	UpdatedAt time.Time     `yaml:"updatedAt"`
	Versions  []SeedVersion `yaml:"versions"`
}

type SeedVersion struct {
	Name      string       `yaml:"name"`
	Size      int64        `yaml:"size"`
	UpdatedAt time.Time    `yaml:"updatedAt"`
	Digests   []SeedDigest `yaml:"digests"`
}

type SeedDigest struct {
	Digest string `yaml:"digest"`
	OSArch string `yaml:"osArch"`
	Size   int64  `yaml:"size"`
}

func DecodeSeed(reader io.Reader) (CatalogSeed, error) {
	var seed CatalogSeed
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	if err := decoder.Decode(&seed); err != nil && err != io.EOF {
		return CatalogSeed{}, fmt.Errorf("decode seed: %w", err)
	}
	for i, registry := range seed.Registries {
		if strings.TrimSpace(registry.Name) == "" {
			return CatalogSeed{}, fmt.Errorf("decode seed: registry %d has no name", i)
		}
	}
	return seed, nil
}

func LoadSeedFile(path string) (CatalogSeed, error) {
	file, err := os.Open(path)
	if err != nil {
		return CatalogSeed{}, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer file.Close()
	return DecodeSeed(file)
}

// Seed upserts every entity of seed in one transaction and returns the
// number of rows written.
func (catalog *Catalog) Seed(ctx context.Context, seed CatalogSeed) (int, error) {
	tx, err := catalog.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	written := 0
	for _, registry := range seed.Registries {
		packageType := strings.ToUpper(strings.TrimSpace(registry.PackageType))
		if packageType == "" {
			packageType = "GENERIC"
		}
		registryID, err := upsert(ctx, tx, sq.Insert("registries").
			Columns("registry_name", "registry_package_type", "registry_description", "registry_updated_at").
			Values(registry.Name, packageType, registry.Description, unixSeconds(registry.UpdatedAt)).
			Suffix("ON CONFLICT(registry_name) DO UPDATE SET " +
				"registry_package_type = excluded.registry_package_type, " +
				"registry_description = excluded.registry_description, " +
				"registry_updated_at = excluded.registry_updated_at " +
				"RETURNING registry_id"))
		if err != nil {
			return 0, fmt.Errorf("seed registry %s: %w", registry.Name, err)
		}
		written++

		for _, artifact := range registry.Artifacts {
			artifactID, err := upsert(ctx, tx, sq.Insert("artifacts").
				Columns("artifact_registry_id", "artifact_name", "artifact_downloads", "artifact_updated_at").
				Values(registryID, artifact.Name, artifact.Downloads, unixSeconds(artifact.UpdatedAt)).
				Suffix("ON CONFLICT(artifact_registry_id, artifact_name) DO UPDATE SET " +
					"artifact_downloads = excluded.artifact_downloads, " +
					"artifact_updated_at = excluded.artifact_updated_at " +
					"RETURNING artifact_id"))
			if err != nil {
				return 0, fmt.Errorf("seed artifact %s/%s: %w", registry.Name, artifact.Name, err)
			}
			written++

			for _, version := range artifact.Versions {
				versionID, err := upsert(ctx, tx, sq.Insert("versions").
					Columns("version_artifact_id", "version_name", "version_size", "version_updated_at").
					Values(artifactID, version.Name, version.Size, unixSeconds(version.UpdatedAt)).
					Suffix("ON CONFLICT(version_artifact_id, version_name) DO UPDATE SET " +
						"version_size = excluded.version_size, " +
						"version_updated_at = excluded.version_updated_at " +
						"RETURNING version_id"))
				if err != nil {
					return 0, fmt.Errorf("seed version %s:%s: %w", artifact.Name, version.Name, err)
				}
				written++

				for _, digest := range version.Digests {
					if _, err := upsert(ctx, tx, sq.Insert("digests").
						Columns("digest_version_id", "digest_value", "digest_os_arch", "digest_size").
						Values(versionID, digest.Digest, digest.OSArch, digest.Size).
						Suffix("ON CONFLICT(digest_version_id, digest_value) DO UPDATE SET " +
							"digest_os_arch = excluded.digest_os_arch, " +
							"digest_size = excluded.digest_size " +
							"RETURNING digest_id")); err != nil {
						return 0, fmt.Errorf("seed digest %s: %w", digest.Digest, err)
					}
					written++
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return written, nil
}

func upsert(ctx context.Context, tx *sqlx.Tx, insert sq.InsertBuilder) (int64, error) {
	statement, args, err := insert.ToSql()
	if err != nil {
		return 0, err
	}
	var id int64
	if err := tx.QueryRowxContext(ctx, statement, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func unixSeconds(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.Unix()
}
