package conf

import (
	"os"

	"github.com/BurntSushi/toml"

	"hintcheck/internal/errors"
	"hintcheck/internal/hint"
)

// overridesFile is the TOML form of a user hint-override table:
//
//	[overrides]
//	"float" = "int | float"
//	"list[str]" = "Sequence[str]"
//
// Both sides are textual hint expressions resolved against a registry.
type overridesFile struct {
	Overrides map[string]string `toml:"overrides"`
}

// LoadOverrides parses a TOML override table into Override pairs.
func LoadOverrides(path string, reg *hint.Registry) ([]Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ParseFailed, err, "reading overrides %q", path)
	}
	var file overridesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(errors.ParseFailed, err, "parsing overrides %q", path)
	}
	out := make([]Override, 0, len(file.Overrides))
	for fromSrc, toSrc := range file.Overrides {
		from, err := hint.Parse(fromSrc, reg)
		if err != nil {
			return nil, errors.Wrap(errors.ParseFailed, err, "override source %q", fromSrc)
		}
		to, err := hint.Parse(toSrc, reg)
		if err != nil {
			return nil, errors.Wrap(errors.ParseFailed, err, "override target %q", toSrc)
		}
		out = append(out, Override{From: from, To: to})
	}
	return out, nil
}
