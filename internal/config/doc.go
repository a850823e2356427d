// Lifeboat - Backup Retention and Disaster Recovery Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lifeboat

/*
Package config loads Lifeboat configuration with Koanf v2.

Sources are layered, later ones winning:

 1. Defaults from defaultConfig()
 2. An optional YAML file: LIFEBOAT_CONFIG, or the first of DefaultConfigPaths
 3. Environment variables listed in envMappings

Environment variables are mapped explicitly so unrelated variables never
leak into the configuration:

	LIFEBOAT_STORAGE_DRIVER=s3 -> storage.driver
	LIFEBOAT_S3_BUCKET=backups -> storage.s3.bucket
	LIFEBOAT_ENCRYPTION_KEY=... -> encryption.key

Example YAML:

	catalog:
	  driver: badger
	  path: /var/lib/lifeboat/catalog
	storage:
	  driver: fs
	  fs_root: /var/lib/lifeboat/objects
	source:
	  directory: /srv/app/data
	schedule:
	  tick_interval: 1m
	  default_weekday: 0

Validate reports problems using the environment variable name of the
offending setting.
*/
package config
