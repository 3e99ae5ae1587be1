// Package watch feeds file-system changes of a project into the indexer.
//
// Raw fsnotify operations are mapped to indexer events: Create becomes
// Created, Write becomes Modified, and Remove or Rename become Deleted.
// Paths excluded by the project's walk.Filter are dropped before delivery.
package watch
