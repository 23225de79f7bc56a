package jsonschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// propertyOrders records, for every "properties" object in the document, the
// key order as declared in the source text. encoding/json drops ordering when
// unmarshalling into maps, so a second token-level pass captures it. Keys are
// JSON Pointers matching the paths used by the normalizer.
func propertyOrders(raw []byte) (map[string][]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("jsonschema: scan property order: %w", err)
	}

	orders := make(map[string][]string)
	if err := scanValue(dec, "#", tok, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func scanValue(dec *json.Decoder, path string, tok json.Token, orders map[string][]string) error {
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}

	switch delim {
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("jsonschema: scan property order: %w", err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return schemaErrorf(path, "object key must be a string")
			}
			childPath := joinPath(path, key)

			valTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("jsonschema: scan property order: %w", err)
			}

			if key == "properties" {
				if err := scanProperties(dec, childPath, valTok, orders); err != nil {
					return err
				}
				continue
			}
			if err := scanValue(dec, childPath, valTok, orders); err != nil {
				return err
			}
		}
		_, err := dec.Token() // consume '}'
		return err
	case '[':
		idx := 0
		for dec.More() {
			valTok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("jsonschema: scan property order: %w", err)
			}
			if err := scanValue(dec, joinPath(path, strconv.Itoa(idx)), valTok, orders); err != nil {
				return err
			}
			idx++
		}
		_, err := dec.Token() // consume ']'
		return err
	}
	return nil
}

func scanProperties(dec *json.Decoder, path string, tok json.Token, orders map[string][]string) error {
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		// Leave malformed shapes to the normalizer; just skip arrays here.
		return scanValue(dec, path, tok, orders)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("jsonschema: scan property order: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return schemaErrorf(path, "property name must be a string")
		}
		orders[path] = append(orders[path], name)

		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("jsonschema: scan property order: %w", err)
		}
		if err := scanValue(dec, joinPath(path, name), valTok, orders); err != nil {
			return err
		}
	}
	_, err := dec.Token() // consume '}'
	return err
}

func joinPath(path string, segments ...string) string {
	if path == "" {
		path = "#"
	}
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		path = path + "/" + escapeJSONPointer(segment)
	}
	return path
}

func escapeJSONPointer(value string) string {
	replacer := strings.NewReplacer("~", "~0", "/", "~1")
	return replacer.Replace(value)
}
