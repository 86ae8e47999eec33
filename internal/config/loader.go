package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
	"gopkg.in/yaml.v3"
)

const includeKey = "$include"

// envPattern matches ${NAME} references. Bare $NAME is left alone so the
// $include key survives expansion.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// pathSettings name the scalar settings that hold files or directories.
// Relative values are anchored to the directory of the file that sets them,
// so a run file can include a shared base from elsewhere.
var pathSettings = [][]string{
	{"convert", "source"},
	{"convert", "output_dir"},
	{"convert", "index_table"},
	{"convert", "documents", "source"},
	{"convert", "passages", "source"},
	{"evaluate", "examples"},
	{"evaluate", "output"},
	{"observability", "metrics_file"},
}

// retrieverPathSettings are anchored inside every evaluate.retrievers entry.
var retrieverPathSettings = [][]string{
	{"lookup"},
	{"index", "location"},
}

func expandEnv(data string) string {
	return envPattern.ReplaceAllStringFunc(data, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}

// layerLoader reads a configuration file and the files it includes. Later
// layers override earlier ones key by key; the including file wins over
// everything it includes.
type layerLoader struct {
	active map[string]bool
}

func readLayers(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is required")
	}
	l := &layerLoader{active: make(map[string]bool)}
	return l.load(path)
}

func (l *layerLoader) load(path string) (map[string]any, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if l.active[abs] {
		return nil, fmt.Errorf("config include cycle detected at %s", abs)
	}
	l.active[abs] = true
	defer delete(l.active, abs)

	layer, err := decodeLayer(abs)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	anchorPaths(layer, dir)

	includes, err := takeIncludes(layer)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(abs), err)
	}
	merged := make(map[string]any)
	for _, inc := range includes {
		included, err := l.load(anchor(dir, inc))
		if err != nil {
			return nil, err
		}
		overlay(merged, included)
	}
	overlay(merged, layer)
	return merged, nil
}

// decodeLayer parses one file as JSON5 (.json, .json5) or YAML after
// ${NAME} expansion. An empty file is an empty layer.
func decodeLayer(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	layer := make(map[string]any)
	if len(bytes.TrimSpace(data)) == 0 {
		return layer, nil
	}
	data = []byte(expandEnv(string(data)))
	name := filepath.Base(path)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".json5":
		if err := json5.Unmarshal(data, &layer); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&layer); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if err := dec.Decode(&struct{}{}); err != io.EOF {
			return nil, fmt.Errorf("parse %s: expected a single document", name)
		}
	}
	if layer == nil {
		layer = make(map[string]any)
	}
	return layer, nil
}

// takeIncludes removes the $include key and returns its paths.
func takeIncludes(layer map[string]any) ([]string, error) {
	value, ok := layer[includeKey]
	if !ok {
		return nil, nil
	}
	delete(layer, includeKey)

	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return nonEmpty([]string{v}), nil
	case []any:
		paths := make([]string, 0, len(v))
		for _, entry := range v {
			s, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("%s entries must be strings, got %T", includeKey, entry)
			}
			paths = append(paths, s)
		}
		return nonEmpty(paths), nil
	default:
		return nil, fmt.Errorf("%s must be a path or a list of paths, got %T", includeKey, value)
	}
}

func nonEmpty(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

// anchorPaths rewrites the relative path settings of one layer against dir.
func anchorPaths(layer map[string]any, dir string) {
	for _, setting := range pathSettings {
		anchorSetting(layer, setting, dir)
	}
	evaluate, _ := layer["evaluate"].(map[string]any)
	retrievers, _ := evaluate["retrievers"].([]any)
	for _, entry := range retrievers {
		retriever, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		for _, setting := range retrieverPathSettings {
			anchorSetting(retriever, setting, dir)
		}
	}
}

func anchorSetting(node map[string]any, keys []string, dir string) {
	for _, key := range keys[:len(keys)-1] {
		next, ok := node[key].(map[string]any)
		if !ok {
			return
		}
		node = next
	}
	last := keys[len(keys)-1]
	if value, ok := node[last].(string); ok {
		node[last] = anchor(dir, value)
	}
}

// anchor joins a relative filesystem path to dir. URLs and absolute paths
// are returned unchanged, except sqlite:// locations, whose file path is
// anchored like any other.
func anchor(dir, value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || filepath.IsAbs(trimmed) {
		return value
	}
	if rest, ok := strings.CutPrefix(trimmed, "sqlite://"); ok {
		if rest == "" || filepath.IsAbs(rest) {
			return value
		}
		return "sqlite://" + filepath.Join(dir, rest)
	}
	if strings.Contains(trimmed, "://") {
		return value
	}
	return filepath.Join(dir, trimmed)
}

// overlay merges src into dst. Nested sections merge key by key; lists and
// scalars from src replace those in dst.
func overlay(dst, src map[string]any) {
	for key, value := range src {
		section, ok := value.(map[string]any)
		existing, exists := dst[key].(map[string]any)
		if ok && exists {
			overlay(existing, section)
			continue
		}
		dst[key] = value
	}
}

// decodeLayers decodes the merged layers into a Config, rejecting unknown keys.
func decodeLayers(raw map[string]any) (*Config, error) {
	payload, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize config: %w", err)
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(payload))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
