package services

const catalogSchema = `
CREATE TABLE IF NOT EXISTS registries (
	registry_id           INTEGER PRIMARY KEY AUTOINCREMENT,
	registry_name         TEXT NOT NULL UNIQUE,
	registry_package_type TEXT NOT NULL DEFAULT 'GENERIC',
	registry_description  TEXT NOT NULL DEFAULT '',
	registry_updated_at   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS artifacts (
	artifact_id          INTEGER PRIMARY KEY AUTOINCREMENT,
	artifact_registry_id INTEGER NOT NULL REFERENCES registries(registry_id) ON DELETE CASCADE,
	artifact_name        TEXT NOT NULL,
	artifact_downloads   INTEGER NOT NULL DEFAULT 0,
	artifact_updated_at  INTEGER NOT NULL DEFAULT 0,
	UNIQUE (artifact_registry_id, artifact_name)
);

CREATE TABLE IF NOT EXISTS versions (
	version_id          INTEGER PRIMARY KEY AUTOINCREMENT,
	version_artifact_id INTEGER NOT NULL REFERENCES artifacts(artifact_id) ON DELETE CASCADE,
	version_name        TEXT NOT NULL,
	version_size        INTEGER NOT NULL DEFAULT 0,
	version_updated_at  INTEGER NOT NULL DEFAULT 0,
	UNIQUE (version_artifact_id, version_name)
);

CREATE TABLE IF NOT EXISTS digests (
	digest_id         INTEGER PRIMARY KEY AUTOINCREMENT,
	digest_version_id INTEGER NOT NULL REFERENCES versions(version_id) ON DELETE CASCADE,
	digest_value      TEXT NOT NULL,
	digest_os_arch    TEXT NOT NULL DEFAULT '',
	digest_size       INTEGER NOT NULL DEFAULT 0,
	UNIQUE (digest_version_id, digest_value)
);
`
