// Package textutil provides text normalization and similarity scoring
// primitives used by the matcher.
package textutil
