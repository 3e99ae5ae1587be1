// Package symbols re-ranks search results toward files that declare or
// mention the symbols named in a query.
//
// A Resolver looks each name up in a SymbolIndex and sorts the matching
// files into classes, methods, fields, file names and plain-text hits.
// Rescale then shrinks the distance of every result in one of those files
// by a weight that depends on the strongest match. Distances never grow.
package symbols
