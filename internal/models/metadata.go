package models

// Archive kinds
const (
	KindRmrf = "rmrf"
	KindBkup = "bkup"
)

// Metadata describes one archive directory. It is stored next to the
// archive as metadata.yml.
type Metadata struct {
	Cwd      string              `yaml:"cwd"`
	Items    []string            `yaml:"items"`
	Kind     string              `yaml:"kind"`
	Created  string              `yaml:"created"`
	Archive  string              `yaml:"archive"`
	SHA256   string              `yaml:"sha256"`
	Contents map[string][]string `yaml:"contents,omitempty"`
}
