package importer

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var defaultAliasesYAML []byte

// AliasDictionary lists, per field, the header spellings that map to it in
// priority order. Aliases are stored lower-cased and trimmed.
type AliasDictionary map[CanonicalField][]string

// DefaultAliases returns the built-in dictionary.
func DefaultAliases() AliasDictionary {
	d, err := ParseAliases(defaultAliasesYAML)
	if err != nil {
		panic(fmt.Sprintf("importer: embedded aliases.yaml is invalid: %v", err))
	}
	return d
}

// LoadAliases reads a replacement dictionary from a YAML file.
func LoadAliases(path string) (AliasDictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aliases file: %w", err)
	}
	d, err := ParseAliases(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// ParseAliases decodes a YAML mapping of field name to alias list. Every
// key must be a known field and every list must be non-empty. Fields absent
// from the document simply never map.
func ParseAliases(data []byte) (AliasDictionary, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode aliases: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("alias dictionary is empty")
	}

	d := make(AliasDictionary, len(raw))
	for key, list := range raw {
		field := CanonicalField(strings.TrimSpace(key))
		if !field.Valid() {
			return nil, fmt.Errorf("unknown field %q", key)
		}
		var aliases []string
		for _, a := range list {
			if a = normalizeHeader(a); a != "" {
				aliases = append(aliases, a)
			}
		}
		if len(aliases) == 0 {
			return nil, fmt.Errorf("field %q has no aliases", key)
		}
		d[field] = aliases
	}
	return d, nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
