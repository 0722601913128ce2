// Command castelos builds the Portuguese fortifications dataset. It scrapes the
// Portuguese Wikipedia list of fortifications, looks up each site's Wikidata
// coordinates, and writes an intermediate and a de-duplicated CSV artifact.
//
// Usage:
//
//	castelos [--config castelos.yaml]
//
// Every setting can also be supplied through CASTELOS_* environment variables,
// for example CASTELOS_PIPELINE_CONCURRENCY=4 or CASTELOS_STORAGE_BACKEND=gcs.
package main
