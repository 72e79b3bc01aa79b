package template

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"
)

// catalogEntry is one renderable template in a locale file.
type catalogEntry struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// catalog maps locale → channel → type → entry.
type catalog map[string]map[string]map[string]catalogEntry

func (c catalog) entry(locale, channel, typ string) (catalogEntry, bool) {
	channels, ok := c[locale]
	if !ok {
		return catalogEntry{}, false
	}
	types, ok := channels[channel]
	if !ok {
		return catalogEntry{}, false
	}
	e, ok := types[typ]
	return e, ok
}

func (c catalog) locales() []string {
	out := make([]string, 0, len(c))
	for locale := range c {
		out = append(out, locale)
	}
	return out
}

// loadCatalog reads every <locale>.yaml file at the root of fsys.
func loadCatalog(fsys fs.FS) (catalog, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	more, err := fs.Glob(fsys, "*.yml")
	if err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	names = append(names, more...)

	cat := make(catalog, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("%s: %w", name, err))
		}

		var channels map[string]map[string]catalogEntry
		if err := yaml.Unmarshal(data, &channels); err != nil {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("%s: %w", name, err))
		}

		for channel, types := range channels {
			for typ, e := range types {
				if strings.TrimSpace(e.Body) == "" {
					return nil, errors.Join(ErrInvalidCatalog,
						fmt.Errorf("%s: empty body for %s/%s", name, channel, typ))
				}
			}
		}

		locale := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		cat[strings.ToLower(locale)] = channels
	}

	if len(cat) == 0 {
		return nil, ErrNoCatalog
	}
	return cat, nil
}
