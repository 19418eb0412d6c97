package persistence

var MigrationVersions = migrationVersions
