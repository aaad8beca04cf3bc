package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the catalog from a YAML file. A missing file is not an error:
// the built-in default catalog is returned so the funnel keeps working
// without deployment-specific configuration.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	if len(c.Services) == 0 {
		return nil, fmt.Errorf("catalog file %s defines no services", path)
	}

	return &c, nil
}
