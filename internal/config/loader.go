package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

// DefaultEnvMapping maps environment variables onto dotted config paths.
var DefaultEnvMapping = map[string]string{
	"TICKVIEW_BACKEND":       "remote.backend",
	"TICKVIEW_ACCESS_TOKEN":  "remote.access_token",
	"TICKVIEW_LOCAL_DIR":     "remote.local_dir",
	"TICKVIEW_LISTING_TTL":   "listing.ttl",
	"TICKVIEW_WARM_INTERVAL": "listing.warm_interval",
	"TICKVIEW_EXPORT_FORMAT": "export.format",
	"LOG_LEVEL":              "application.log_level",
	"SERVER_ADDR":            "server.addr",
}

// LoadConfig loads the YAML config at cfgPath, validates it against the embedded
// JSON schema, applies environment overrides and decodes the result over Default().
//
// envMapping is optional; when nil DefaultEnvMapping is used.
func LoadConfig(cfgPath string, envMapping map[string]string) (*Config, error) {
	yb, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(yb, envMapping)
}

// ParseConfig is LoadConfig over an in-memory document.
func ParseConfig(yb []byte, envMapping map[string]string) (*Config, error) {
	var doc interface{}
	if err := yaml.Unmarshal(yb, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	schemaDoc := schemaDocument(doc)
	if err := validate(schemaDoc); err != nil {
		return nil, err
	}

	cfgMap, ok := schemaDoc.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("config root must be a mapping")
	}

	if envMapping == nil {
		envMapping = DefaultEnvMapping
	}
	applyEnvOverrides(cfgMap, envMapping)

	// overrides may have introduced invalid values
	if err := validate(cfgMap); err != nil {
		return nil, err
	}

	merged, err := yaml.Marshal(cfgMap)
	if err != nil {
		return nil, fmt.Errorf("marshal merged config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(merged, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func validate(doc interface{}) error {
	jb, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal to json: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	documentLoader := gojsonschema.NewBytesLoader(jb)
	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var sb strings.Builder
		for _, e := range result.Errors() {
			sb.WriteString("- ")
			sb.WriteString(e.String())
			sb.WriteString("\n")
		}
		return fmt.Errorf("config validation failed:\n%s", sb.String())
	}
	return nil
}

// intFields are the dotted paths whose environment overrides are coerced to integers.
var intFields = map[string]bool{
	"remote.page_size":           true,
	"remote.max_pages":           true,
	"remote.requests_per_minute": true,
}

// applyEnvOverrides reads environment variables per mapping and sets dotted-paths in cfg.
func applyEnvOverrides(cfg map[string]interface{}, mapping map[string]string) {
	for env, path := range mapping {
		v, ok := os.LookupEnv(env)
		if !ok || v == "" {
			continue
		}
		if intFields[path] {
			if i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				setPath(cfg, path, i)
				continue
			}
		}
		setPath(cfg, path, v)
	}
}

// setPath stores value under a dotted config path such as "listing.warm_interval".
// Missing sections are created; a scalar sitting where a section belongs is replaced.
func setPath(cfg map[string]interface{}, path string, value interface{}) {
	section, key := cfg, path
	for {
		head, rest, nested := strings.Cut(key, ".")
		if !nested {
			section[key] = value
			return
		}
		child, ok := section[head].(map[string]interface{})
		if !ok {
			child = map[string]interface{}{}
			section[head] = child
		}
		section, key = child, rest
	}
}

// schemaDocument rewrites a decoded config document into the shape gojsonschema
// walks. yaml.v3 keeps sections with non-string keys (a stray "1: x" under
// remote, say) as map[interface{}]interface{}; their keys are stringified so
// the schema reports them as unknown properties.
func schemaDocument(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = schemaDocument(item)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = schemaDocument(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = schemaDocument(item)
		}
		return out
	default:
		return val
	}
}

// Check reports settings that pass the schema but cannot work together.
func (c *Config) Check() error {
	switch c.Remote.Backend {
	case BackendLocal:
		if c.Remote.LocalDir == "" {
			return fmt.Errorf("remote.local_dir is required for the local backend")
		}
	case BackendDrive:
		if c.Remote.AccessToken == "" {
			return fmt.Errorf("remote.access_token is required for the drive backend")
		}
	default:
		return fmt.Errorf("unknown remote backend %q", c.Remote.Backend)
	}
	if c.Listing.TTL < 0 {
		return fmt.Errorf("listing.ttl must not be negative")
	}
	return nil
}
