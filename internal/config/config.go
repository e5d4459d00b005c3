package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ralt/rmrf/internal/models"
	"github.com/ralt/rmrf/internal/scanner"
	"github.com/ralt/rmrf/internal/utils"
	"github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// EnvConfig names the environment variable overriding the config location
const EnvConfig = "RMRF_CFG"

// Candidates returns the config file locations tried when no explicit
// path is given, in order
func Candidates() []string {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "rmrf", "rmrf.cfg"))
	}
	return append(candidates, "rmrf.cfg")
}

// Load reads the configuration. An explicit path (flag or $RMRF_CFG) must
// exist; otherwise the first existing candidate is used, falling back to
// defaults.
func Load(explicit string) (*models.Config, error) {
	if explicit == "" {
		explicit = os.Getenv(EnvConfig)
	}

	if explicit != "" {
		path, err := utils.ExpandPath(explicit)
		if err != nil {
			return nil, err
		}
		return LoadFile(path)
	}

	for _, candidate := range Candidates() {
		if _, err := os.Stat(candidate); err == nil {
			return LoadFile(candidate)
		}
	}

	logrus.Debug("No config file found, using defaults")
	cfg := models.DefaultConfig()
	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile parses an rmrf.cfg INI file. Keys live in the [DEFAULT] section.
func LoadFile(path string) (*models.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &models.RmrfError{Type: models.ErrConfig, Path: path, Err: fmt.Errorf("config file not found")}
		}
		return nil, &models.RmrfError{Type: models.ErrConfig, Path: path, Err: err}
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, &models.RmrfError{Type: models.ErrConfig, Path: path, Err: err}
	}

	cfg := models.DefaultConfig()
	cfg.Path = path

	section := file.Section(ini.DefaultSection)

	cfg.RmrfPath = section.Key("rmrf_path").MustString(cfg.RmrfPath)
	cfg.BkupPath = section.Key("bkup_path").MustString(cfg.BkupPath)
	cfg.Compression = section.Key("compression").MustString(cfg.Compression)

	if key := section.Key("sudo"); key.String() != "" {
		if cfg.Sudo, err = key.Bool(); err != nil {
			return nil, &models.RmrfError{Type: models.ErrConfig, Path: path, Err: fmt.Errorf("sudo: %w", err)}
		}
	}
	if key := section.Key("keep"); key.String() != "" {
		if cfg.Keep, err = key.Int(); err != nil {
			return nil, &models.RmrfError{Type: models.ErrConfig, Path: path, Err: fmt.Errorf("keep: %w", err)}
		}
	}
	if key := section.Key("threshold"); key.String() != "" {
		if cfg.Threshold, err = key.Int(); err != nil {
			return nil, &models.RmrfError{Type: models.ErrConfig, Path: path, Err: fmt.Errorf("threshold: %w", err)}
		}
	}

	if err := normalize(&cfg); err != nil {
		return nil, &models.RmrfError{Type: models.ErrConfig, Path: path, Err: err}
	}

	logrus.Debugf("Loaded config from %s: %+v", path, cfg)
	return &cfg, nil
}

func normalize(cfg *models.Config) error {
	var err error
	if cfg.RmrfPath, err = absPath(cfg.RmrfPath); err != nil {
		return fmt.Errorf("rmrf_path: %w", err)
	}
	if cfg.BkupPath, err = absPath(cfg.BkupPath); err != nil {
		return fmt.Errorf("bkup_path: %w", err)
	}

	if cfg.Keep < 0 {
		return fmt.Errorf("keep must not be negative, got %d", cfg.Keep)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 100 {
		return fmt.Errorf("threshold must be between 0 and 100, got %d", cfg.Threshold)
	}
	if _, ok := scanner.ParseFormat(cfg.Compression); !ok {
		return fmt.Errorf("unknown compression %q", cfg.Compression)
	}
	return nil
}

func absPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("path is empty")
	}
	p, err := utils.ExpandPath(p)
	if err != nil {
		return "", err
	}
	return filepath.Abs(p)
}
