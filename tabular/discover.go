package tabular

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/poiesic/rowembed/core"
)

// InputTablesDir is where a data directory keeps its input tables.
const InputTablesDir = "in/tables"

// OutputTablesDir is where a data directory receives output tables.
const OutputTablesDir = "out/tables"

// FindInputTable returns the single table in dataDir/in/tables.
// Manifests and files of other formats are ignored. Finding no table or
// more than one is a configuration error.
func FindInputTable(dataDir string) (string, error) {
	dir := filepath.Join(dataDir, InputTablesDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &core.ConfigurationError{
			Field:   "input",
			Message: "cannot read input tables directory " + dir,
			Err:     err,
		}
	}

	var tables []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, err := FormatOf(entry.Name()); err != nil {
			continue
		}
		tables = append(tables, filepath.Join(dir, entry.Name()))
	}
	slices.Sort(tables)

	switch len(tables) {
	case 0:
		return "", core.NewConfigurationError("input",
			"no input table specified; provide one input table in %s", dir)
	case 1:
		return tables[0], nil
	default:
		return "", core.NewConfigurationError("input",
			"only one input table is supported, found %d in %s", len(tables), dir)
	}
}
