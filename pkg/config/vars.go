package config

import (
	"path/filepath"
)

var (
	// MinVersionDiamond determines the oldest diamond release known to
	// produce the staxids output column taxsieve parses. Newer versions
	// are all supported.
	MinVersionDiamond = "v2.0.15"
	// AppName is used in generating file system paths.
	AppName = "taxsieve"
)

// ConfigDir returns the directory path for configuration files.
// Returns ~/.config/taxsieve by default.
func ConfigDir(homeDir string) string {
	return filepath.Join(homeDir, ".config", AppName)
}

// CacheDir returns the directory path for cache files.
// Returns ~/.cache/taxsieve by default.
func CacheDir(homeDir string) string {
	return filepath.Join(homeDir, ".cache", AppName)
}

// LogDir returns the directory path for log files.
// Returns ~/.local/share/taxsieve/logs by default.
func LogDir(homeDir string) string {
	return filepath.Join(homeDir, ".local", "share", AppName, "logs")
}

// ConfigFilePath returns the full path to the config.yaml file.
// Returns ~/.config/taxsieve/config.yaml by default.
func ConfigFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "config.yaml")
}

// RunExampleFilePath returns the full path to the annotated example run
// document. Returns ~/.config/taxsieve/run.example.yaml by default.
func RunExampleFilePath(homeDir string) string {
	return filepath.Join(ConfigDir(homeDir), "run.example.yaml")
}

// TaxonomyCacheDir returns the default directory for taxdump files and
// the SQLite cache. Returns ~/.cache/taxsieve/taxonomy by default.
func TaxonomyCacheDir(homeDir string) string {
	return filepath.Join(CacheDir(homeDir), "taxonomy")
}
