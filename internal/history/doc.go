// Package history implements RunHistoryStore: an append-only on-disk
// journal of past workflow runs, one JSONL file per (workflow id, input
// fingerprint) pair under the user's config directory.
package history
