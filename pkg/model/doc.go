// Package model exposes the field descriptor tree built from a canonical
// connector schema. The heavy lifting lives in internal/model; this package
// re-exports the stable surface renderers and the form pipeline consume.
package model
