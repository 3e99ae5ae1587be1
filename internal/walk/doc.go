// Package walk enumerates the files of a project that are eligible for
// indexing.
//
// A file is skipped when any path element is hidden or a well-known
// dependency, build or tool directory, when a .gitignore excludes it, when
// its size is not in (0, MaxFileSize), when its first 8KiB contain a NUL
// byte or when its first line carries the protobuf generator marker.
package walk
