package feed

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed feeds.yml
var defaultRegistry []byte

type registryFile struct {
	Feeds []Source `yaml:"feeds"`
}

// Registry is the ordered, immutable list of feed sources.
type Registry struct {
	sources []Source
	byName  map[string]Source
}

// LoadRegistry reads the registry from a YAML file, or the embedded default when path is empty.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return ParseRegistry(defaultRegistry)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	registry, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("invalid registry %s: %w", path, err)
	}

	slog.Debug("Registry loaded", "path", path, "sources", registry.Len())
	return registry, nil
}

func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return NewRegistry(file.Feeds)
}

func NewRegistry(sources []Source) (*Registry, error) {
	r := &Registry{
		sources: make([]Source, 0, len(sources)),
		byName:  make(map[string]Source, len(sources)),
	}

	for i, source := range sources {
		source.Name = strings.TrimSpace(source.Name)
		source.URL = strings.TrimSpace(source.URL)

		if err := validateSource(source); err != nil {
			return nil, fmt.Errorf("invalid source at index %d: %w", i, err)
		}
		if _, exists := r.byName[source.Name]; exists {
			return nil, fmt.Errorf("duplicate source name at index %d: %s", i, source.Name)
		}

		if source.Platform == PlatformGeneric {
			source.Platform = DetectPlatform(source.URL)
		}

		r.sources = append(r.sources, source)
		r.byName[source.Name] = source
	}

	return r, nil
}

// Sources returns the sources in registry order.
func (r *Registry) Sources() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

func (r *Registry) Get(name string) (Source, bool) {
	source, ok := r.byName[name]
	return source, ok
}

func (r *Registry) Len() int {
	return len(r.sources)
}

func validateSource(source Source) error {
	requiredFields := map[string]string{
		"name": source.Name,
		"url":  source.URL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	u, err := url.Parse(source.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", source.URL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) URL: %s", source.URL)
	}

	if !source.Type.Valid() {
		return fmt.Errorf("invalid type %q for %s", source.Type, source.Name)
	}

	return nil
}

// DetectPlatform infers the hosting platform from a feed or post URL.
func DetectPlatform(rawURL string) Platform {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PlatformGeneric
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case host == "medium.com" || strings.HasSuffix(host, ".medium.com"):
		return PlatformMedium
	case host == "velog.io" || strings.HasSuffix(host, ".velog.io"):
		return PlatformVelog
	case strings.HasSuffix(host, ".tistory.com"):
		return PlatformTistory
	case host == "brunch.co.kr" || strings.HasSuffix(host, ".brunch.co.kr"):
		return PlatformBrunch
	default:
		return PlatformGeneric
	}
}
