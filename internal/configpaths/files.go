// Package configpaths locates steamdsud's configuration file across the
// platform-conventional search locations.
package configpaths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfigDir returns the platform-specific configuration directory
// for steamdsud.
func DefaultConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if appdata := os.Getenv("AppData"); appdata != "" {
			return filepath.Join(appdata, "steamdsud"), nil
		}
		return "", errors.New("AppData not set")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "steamdsud"), nil
		}
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, ".config", "steamdsud"), nil
		}
		return "", errors.New("HOME not set")
	}
}

// DefaultConfigPath returns the default config file path for format using
// base name "config".
func DefaultConfigPath(format string) (string, error) {
	return DefaultNamedConfigPath("config", format)
}

// DefaultNamedConfigPath returns the default config file path for the given
// format and base name.
func DefaultNamedConfigPath(baseName, format string) (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	ext := "json"
	switch format {
	case "yaml", "yml":
		ext = "yaml"
	case "toml":
		ext = "toml"
	}
	return filepath.Join(dir, baseName+"."+ext), nil
}

// EnsureDir makes sure the directory holding filePath exists.
func EnsureDir(filePath string) error {
	return os.MkdirAll(filepath.Dir(filePath), 0o755)
}

// candidateSet accumulates config file candidates bucketed by the loader
// that would parse them.
type candidateSet struct {
	json, yaml, toml []string
}

func (c *candidateSet) add(format, path string) {
	switch format {
	case "json":
		c.json = append(c.json, path)
	case "yaml":
		c.yaml = append(c.yaml, path)
	case "toml":
		c.toml = append(c.toml, path)
	}
}

// addBase queues the json/yaml/yml/toml variants of dir/base.
func (c *candidateSet) addBase(dir, base string) {
	c.add("json", filepath.Join(dir, base+".json"))
	c.add("yaml", filepath.Join(dir, base+".yaml"))
	c.add("yaml", filepath.Join(dir, base+".yml"))
	c.add("toml", filepath.Join(dir, base+".toml"))
}

// ConfigCandidatePaths builds the ordered candidate config file paths per
// format, searched in this priority: an explicit userPath, the working
// directory, the user config directory, then (on non-Windows) /etc.
func ConfigCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	var set candidateSet

	if userPath != "" {
		format := "json"
		switch filepath.Ext(userPath) {
		case ".yaml", ".yml":
			format = "yaml"
		case ".toml":
			format = "toml"
		}
		set.add(format, userPath)
	}

	wd, _ := os.Getwd()
	for _, base := range []string{"steamdsud", "config", "server"} {
		set.addBase(wd, base)
	}

	if dir, err := DefaultConfigDir(); err == nil {
		for _, base := range []string{"config", "server"} {
			set.addBase(dir, base)
		}
	}

	if runtime.GOOS != "windows" {
		for _, base := range []string{"config", "server"} {
			set.addBase("/etc/steamdsud", base)
		}
	}

	return set.json, set.yaml, set.toml
}
