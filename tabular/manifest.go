package tabular

import (
	"encoding/json"
	"os"
	"strings"
)

// ManifestSuffix is appended to a table path to name its manifest.
const ManifestSuffix = ".manifest"

// Manifest tells the consuming platform how to load an output table.
type Manifest struct {
	Incremental bool     `json:"incremental"`
	PrimaryKey  []string `json:"primary_key"`
}

// ParsePrimaryKey splits a comma separated key list, dropping blanks.
func ParsePrimaryKey(keys string) []string {
	out := []string{}
	for _, key := range strings.Split(keys, ",") {
		if key = strings.TrimSpace(key); key != "" {
			out = append(out, key)
		}
	}
	return out
}

// WriteManifest writes the manifest for the table at tablePath.
func WriteManifest(tablePath string, m Manifest) error {
	if m.PrimaryKey == nil {
		m.PrimaryKey = []string{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tablePath+ManifestSuffix, append(data, '\n'), 0o644)
}
