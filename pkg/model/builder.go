package model

import (
	internalmodel "github.com/goliatone/go-connform/internal/model"
	"github.com/goliatone/go-connform/pkg/schema"
)

// Builder interprets canonical schemas into descriptor trees and initial
// value trees.
type Builder interface {
	Build(root schema.Schema) ([]Field, error)
	Values(root schema.Schema, prior map[string]any, edit bool) (map[string]any, error)
}

// BuilderOption configures the builder behaviour.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	labeler func(string) string
}

// WithLabeler overrides the default label generation function.
func WithLabeler(labeler func(string) string) BuilderOption {
	return func(opts *builderOptions) {
		opts.labeler = labeler
	}
}

// NewBuilder returns a Builder backed by the internal implementation.
func NewBuilder(options ...BuilderOption) Builder {
	cfg := builderOptions{}
	for _, opt := range options {
		opt(&cfg)
	}

	internalOpts := internalmodel.Options{}
	if cfg.labeler != nil {
		internalOpts.Labeler = cfg.labeler
	}

	return internalmodel.New(internalOpts)
}
