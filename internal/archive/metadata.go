package archive

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/ralt/rmrf/internal/models"
	"github.com/ralt/rmrf/internal/scanner"
	"github.com/ralt/rmrf/internal/utils"
)

// MetadataFile is the name of the metadata file inside an archive directory
const MetadataFile = "metadata.yml"

// maxContentLines bounds the per item listing kept in the metadata
const maxContentLines = 64

func writeMetadata(dir string, meta *models.Metadata) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	return utils.WriteFile(filepath.Join(dir, MetadataFile), data, 0644)
}

// ReadMetadata loads the metadata of an archive directory. The raw file
// content is returned alongside the decoded value.
func ReadMetadata(dir string) (*models.Metadata, []byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, nil, err
	}

	var meta models.Metadata
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", filepath.Join(dir, MetadataFile), err)
	}

	return &meta, data, nil
}

// describe renders an ls -l like line for a scanned entry
func describe(e scanner.Entry) string {
	line := fmt.Sprintf("%s %10d %s", e.Info.Mode(), e.Info.Size(), e.Name)
	if e.Link != "" {
		line += " -> " + e.Link
	}
	return line
}

func contentLines(entries []scanner.Entry) []string {
	lines := make([]string, 0, min(len(entries), maxContentLines+1))
	for i, e := range entries {
		if i == maxContentLines {
			lines = append(lines, fmt.Sprintf("(%d more entries)", len(entries)-maxContentLines))
			break
		}
		lines = append(lines, describe(e))
	}
	return lines
}
