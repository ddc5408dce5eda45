package catalog

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"surveyrunner/internal/scrapers/survey"
	"surveyrunner/lib/configutil"
	"surveyrunner/lib/textutil"

	"dario.cat/mergo"
	"github.com/antzucaro/matchr"
	"github.com/titanous/json5"

	_ "embed"
)

//go:embed catalog.json5
var embedded []byte

// a version must be at least this similar to be suggested
const suggestionThreshold = 0.8

type PriceConfig struct {
	Pound string `json:"pound"`
	Pence string `json:"pence"`
}

type SiteConfig struct {
	BaseUrl       string      `json:"base_url"`
	EntryStrategy string      `json:"entry_strategy"`
	Sentinel      string      `json:"sentinel"`
	DefaultRating string      `json:"default_rating"`
	Price         PriceConfig `json:"price"`
	// values are numbers or strings, survey.EmailPlaceholder is substituted
	Answers map[string]any `json:"answers"`
}

type Config struct {
	Sites map[string]SiteConfig `json:"sites"`
}

func Parse(data []byte) (Config, error) {
	var cfg Config
	err := json5.Unmarshal(data, &cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge lays override on top of base. Scalar fields of a site are replaced
// when set in override, answers are merged key by key.
func Merge(base, override Config) (Config, error) {
	out := Config{Sites: make(map[string]SiteConfig, len(base.Sites))}
	for version, site := range base.Sites {
		site.Answers = maps.Clone(site.Answers)
		out.Sites[normalizeVersion(version)] = site
	}

	for version, site := range override.Sites {
		version = normalizeVersion(version)
		current, ok := out.Sites[version]
		if !ok {
			out.Sites[version] = site
			continue
		}

		answers := maps.Clone(current.Answers)
		if answers == nil {
			answers = make(map[string]any, len(site.Answers))
		}
		maps.Copy(answers, site.Answers)
		site.Answers = nil

		err := mergo.Merge(&current, site, mergo.WithOverride)
		if err != nil {
			return Config{}, fmt.Errorf("merge site %s: %w", version, err)
		}
		current.Answers = answers
		out.Sites[version] = current
	}

	return out, nil
}

type Entry struct {
	Version   string
	Supported bool
	Site      survey.Site
}

// Catalog is the immutable set of survey versions a runner can serve.
type Catalog struct {
	entries map[string]Entry
}

func New(cfg Config) (Catalog, error) {
	entries := make(map[string]Entry, len(cfg.Sites))
	for version, site := range cfg.Sites {
		version = normalizeVersion(version)
		entry, err := newEntry(version, site)
		if err != nil {
			return Catalog{}, fmt.Errorf("catalog site %s: %w", version, err)
		}
		entries[version] = entry
	}
	return Catalog{entries: entries}, nil
}

func newEntry(version string, cfg SiteConfig) (Entry, error) {
	if strings.TrimSpace(cfg.BaseUrl) == "" {
		return Entry{Version: version}, nil
	}

	strategy, err := survey.ParseStrategy(cfg.EntryStrategy)
	if err != nil {
		return Entry{}, err
	}

	answers := make(map[string]string, len(cfg.Answers))
	for field, value := range cfg.Answers {
		answer, err := answerString(value)
		if err != nil {
			return Entry{}, fmt.Errorf("answer %s: %w", field, err)
		}
		answers[field] = answer
	}

	sentinel := cfg.Sentinel
	if sentinel == "" {
		sentinel = survey.DefaultSentinel
	}

	return Entry{
		Version:   version,
		Supported: true,
		Site: survey.Site{
			Version:       version,
			BaseUrl:       strings.TrimRight(strings.TrimSpace(cfg.BaseUrl), "/"),
			EntryStrategy: strategy,
			Sentinel:      sentinel,
			Price: survey.Price{
				Pound: cfg.Price.Pound,
				Pence: cfg.Price.Pence,
			},
			Policy: survey.NewPolicy(answers, cfg.DefaultRating),
		},
	}, nil
}

func answerString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", nil
	}
	return "", fmt.Errorf("unsupported answer type %T", value)
}

func normalizeVersion(version string) string {
	return textutil.NormalizeKey(version)
}

// Default is the catalog compiled into the binary.
func Default() (Catalog, error) {
	cfg, err := Parse(embedded)
	if err != nil {
		return Catalog{}, fmt.Errorf("parse embedded catalog: %w", err)
	}
	return New(cfg)
}

// Load is the compiled in catalog with the file at path (and its .local
// sibling) laid over it. An empty path is the same as Default.
func Load(path string) (Catalog, error) {
	cfg, err := Parse(embedded)
	if err != nil {
		return Catalog{}, fmt.Errorf("parse embedded catalog: %w", err)
	}
	if path != "" {
		override, err := configutil.ReadConfig[Config](path)
		if err != nil {
			return Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
		}
		cfg, err = Merge(cfg, override)
		if err != nil {
			return Catalog{}, err
		}
	}
	return New(cfg)
}

func (c Catalog) Lookup(version string) (survey.Site, error) {
	version = normalizeVersion(version)
	entry, ok := c.entries[version]
	if !ok {
		suggestion := c.suggest(version)
		if suggestion != "" {
			return survey.Site{}, fmt.Errorf("%w: %q (did you mean %q?)", survey.ErrUnsupportedVersion, version, suggestion)
		}
		return survey.Site{}, fmt.Errorf("%w: %q", survey.ErrUnsupportedVersion, version)
	}
	if !entry.Supported {
		return survey.Site{}, fmt.Errorf("%w: %q", survey.ErrUnsupportedVersion, version)
	}
	return entry.Site, nil
}

func (c Catalog) suggest(version string) string {
	var best string
	var bestSimilarity float64
	for _, candidate := range c.Versions() {
		similarity := matchr.JaroWinkler(version, candidate, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = candidate
		}
	}
	if bestSimilarity < suggestionThreshold {
		return ""
	}
	return best
}

func (c Catalog) Versions() []string {
	return slices.Sorted(maps.Keys(c.entries))
}

// Entries lists every known version, supported or not, sorted by version.
func (c Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, version := range c.Versions() {
		out = append(out, c.entries[version])
	}
	return out
}
