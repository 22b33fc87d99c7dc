package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type aliasFile struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// LoadAliasFile reads additional header aliases from a YAML file of the form
//
//	aliases:
//	  email: ["courriel", "correo"]
//	  company: ["firma"]
//
// An empty path yields no extra aliases.
func LoadAliasFile(path string) (map[Field][]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alias file: %w", err)
	}
	return ParseAliases(data)
}

func ParseAliases(data []byte) (map[Field][]string, error) {
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse alias file: %w", err)
	}
	out := make(map[Field][]string, len(f.Aliases))
	for name, aliases := range f.Aliases {
		field := Field(name)
		if !field.Valid() {
			return nil, fmt.Errorf("alias file: unknown field %q", name)
		}
		for _, a := range aliases {
			if Normalize(a) == "" {
				return nil, fmt.Errorf("alias file: field %q has an empty alias", name)
			}
		}
		out[field] = aliases
	}
	return out, nil
}
