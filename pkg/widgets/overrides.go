package widgets

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"
)

// Override customises how a single field renders: an alternate widget
// reference plus free-form parameters the widget understands. Help carries
// sanitized HTML shown next to the input.
type Override struct {
	Widget string         `json:"widget,omitempty" yaml:"widget,omitempty"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Help   string         `json:"help,omitempty" yaml:"help,omitempty"`
}

// Overrides maps field paths (dot notation) to their override.
type Overrides map[string]Override

type overrideDocument struct {
	Connectors map[string]struct {
		Fields map[string]Override `json:"fields" yaml:"fields"`
	} `json:"connectors" yaml:"connectors"`
}

var helpPolicy = bluemonday.UGCPolicy()

// LoadFS walks the provided filesystem and parses YAML/JSON override
// documents, keyed by connector service type. Help text is sanitized on the
// way in since override documents may embed connector-supplied HTML.
func LoadFS(fsys fs.FS) (map[string]Overrides, error) {
	out := make(map[string]Overrides)
	if fsys == nil {
		return out, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isOverrideFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("widgets: read %s: %w", path, err)
		}

		var doc overrideDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("widgets: parse %s: %w", path, err)
		}

		for serviceType, connector := range doc.Connectors {
			key := strings.TrimSpace(serviceType)
			if key == "" {
				return fmt.Errorf("widgets: file %s declares an empty connector key", path)
			}
			if _, exists := out[key]; exists {
				return fmt.Errorf("widgets: duplicate connector %q (file %s)", key, path)
			}

			fields := make(Overrides, len(connector.Fields))
			for fieldPath, override := range connector.Fields {
				trimmed := strings.TrimSpace(fieldPath)
				if trimmed == "" {
					return fmt.Errorf("widgets: connector %q declares an empty field path (file %s)", key, path)
				}
				override.Help = SanitizeHelp(override.Help)
				fields[trimmed] = override
			}
			out[key] = fields
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SanitizeHelp strips unsafe markup from override help text.
func SanitizeHelp(help string) string {
	trimmed := strings.TrimSpace(help)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(helpPolicy.Sanitize(trimmed))
}

func isOverrideFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}
