package hint

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"hintcheck/internal/errors"
)

// DeclFile is the on-disk form of registry declarations. The same schema is
// accepted in TOML and YAML:
//
//	[classes]
//	UserId = "int"              # class UserId subclassing int
//
//	[aliases]
//	Json = 'None | bool | int | float | str | list["Json"] | dict[str, "Json"]'
//
//	[deprecated]
//	OldJson = { target = '"Json"', use = "Json" }
//
// Alias targets may forward-reference any declared name, including the
// alias itself; references resolve lazily at reduction time.
type DeclFile struct {
	Classes    map[string]string         `toml:"classes" yaml:"classes"`
	Aliases    map[string]string         `toml:"aliases" yaml:"aliases"`
	Deprecated map[string]DeclDeprecated `toml:"deprecated" yaml:"deprecated"`
}

// DeclDeprecated declares a deprecated alias and its preferred replacement.
type DeclDeprecated struct {
	Target string `toml:"target" yaml:"target"`
	Use    string `toml:"use" yaml:"use"`
}

// LoadDecls reads a declaration file (.toml, .yaml, or .yml) into the
// registry.
func (r *Registry) LoadDecls(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ParseFailed, err, "reading declarations %q", path)
	}
	var decls DeclFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &decls); err != nil {
			return errors.Wrap(errors.ParseFailed, err, "parsing TOML declarations %q", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &decls); err != nil {
			return errors.Wrap(errors.ParseFailed, err, "parsing YAML declarations %q", path)
		}
	default:
		return errors.New(errors.ParseFailed, "unsupported declaration format %q", filepath.Ext(path))
	}
	return r.AddDecls(&decls)
}

// AddDecls registers every declared class and alias. Alias shells are
// registered before any target is parsed so that mutually recursive aliases
// resolve.
func (r *Registry) AddDecls(decls *DeclFile) error {
	for name, baseName := range decls.Classes {
		base, ok := r.LookupClass(baseName)
		if !ok {
			return errors.New(errors.ParseFailed, "class %q has unknown base %q", name, baseName)
		}
		cls := &Class{
			Name:     name,
			Bases:    []*Class{base},
			Instance: base.Instance,
			Sampling: base.Sampling,
		}
		if err := r.Register(name, cls); err != nil {
			return err
		}
	}

	aliases := make(map[string]*Alias, len(decls.Aliases)+len(decls.Deprecated))
	for name := range decls.Aliases {
		aliases[name] = NewAlias(name)
	}
	for name, dep := range decls.Deprecated {
		a := NewAlias(name)
		a.Deprecated = dep.Use
		aliases[name] = a
	}
	for name, a := range aliases {
		if err := r.Register(name, a); err != nil {
			return err
		}
	}
	for name, src := range decls.Aliases {
		target, err := Parse(src, r)
		if err != nil {
			return errors.Wrap(errors.ParseFailed, err, "alias %q", name)
		}
		aliases[name].SetTarget(target)
	}
	for name, dep := range decls.Deprecated {
		target, err := Parse(dep.Target, r)
		if err != nil {
			return errors.Wrap(errors.ParseFailed, err, "deprecated alias %q", name)
		}
		aliases[name].SetTarget(target)
	}
	return nil
}
