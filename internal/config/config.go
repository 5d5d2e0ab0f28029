package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/nyxbridge/steamdsu/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups configuration-file utilities.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit scaffolds a config file matching ServerCmd's flags, so a user
// can hand-edit rather than pass every flag on the command line.
type ConfigInit struct {
	Format string `default:"json" enum:"json,yaml,toml" help:"Output format"`
	Output string `help:"Destination file path (defaults to the platform config directory)"`
	Force  bool   `help:"Overwrite if the file already exists"`
}

// configFormat pairs a canonical format name with its marshaler, so adding
// a format later means adding one table entry rather than touching every
// switch in this file.
type configFormat struct {
	name    string
	marshal func(map[string]any) ([]byte, error)
}

var configFormats = map[string]configFormat{
	"json": {name: "json", marshal: func(m map[string]any) ([]byte, error) { return json.MarshalIndent(m, "", "  ") }},
	"yaml": {name: "yaml", marshal: func(m map[string]any) ([]byte, error) { return yaml.Marshal(m) }},
	"toml": {name: "toml", marshal: func(m map[string]any) ([]byte, error) { return toml.Marshal(m) }},
}

// resolveFormat maps a user-supplied format name (including the "yml"
// alias) onto its configFormat entry.
func resolveFormat(f string) (configFormat, bool) {
	f = strings.ToLower(f)
	if f == "yml" {
		f = "yaml"
	}
	cf, ok := configFormats[f]
	return cf, ok
}

// Run generates a configuration template by reflecting over ServerCmd's
// struct tags, so the template always matches whatever flags the binary
// actually accepts.
func (c *ConfigInit) Run() error {
	cf, ok := resolveFormat(c.Format)
	if !ok {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}

	root := buildMapFromStruct(reflect.TypeOf(ServerCmd{}))

	dest := c.Output
	if dest == "" {
		var err error
		dest, err = configpaths.DefaultNamedConfigPath("server", cf.name)
		if err != nil {
			return err
		}
	}

	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}

	data, err := cf.marshal(root)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

// lowerCamel lowercases s's first byte, matching how Kong derives a flag
// name from an exported struct field.
func lowerCamel(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// buildMapFromStruct walks t's exported fields, honoring the same "embed"
// / "prefix" / "kong:-" tag conventions Kong itself uses, so nested
// configs (like Control control.ServerConfig) land at the right key path.
func buildMapFromStruct(t reflect.Type) map[string]any {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	out := map[string]any{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if f.Tag.Get("kong") == "-" {
			continue
		}

		if _, ok := f.Tag.Lookup("embed"); ok {
			prefix := f.Tag.Get("prefix")
			name := strings.TrimSuffix(prefix, ".")
			sub := buildMapFromStruct(f.Type)
			if name != "" {
				out[name] = sub
			} else {
				for k, v := range sub {
					out[k] = v
				}
			}
			continue
		}

		key := lowerCamel(f.Name)
		def := f.Tag.Get("default")
		val := defaultValueForField(f.Type, def)
		if val != nil {
			out[key] = val
		}
	}
	return out
}

func defaultValueForField(t reflect.Type, def string) any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "time" && t.Name() == "Duration" {
		if def != "" {
			return def
		}
		return "0s"
	}
	switch t.Kind() {
	case reflect.String:
		return def
	case reflect.Bool:
		if def == "" {
			return false
		}
		b, err := strconv.ParseBool(def)
		if err != nil {
			return false
		}
		return b
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if def == "" {
			return 0
		}
		n, err := strconv.ParseInt(def, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if def == "" {
			return 0
		}
		n, err := strconv.ParseUint(def, 10, 64)
		if err != nil {
			return 0
		}
		return n
	case reflect.Float32, reflect.Float64:
		if def == "" {
			return 0
		}
		f, err := strconv.ParseFloat(def, 64)
		if err != nil {
			return 0
		}
		return f
	case reflect.Struct:
		return buildMapFromStruct(t)
	default:
		return nil
	}
}
