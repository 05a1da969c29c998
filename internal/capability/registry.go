package capability

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Role identifies which pipeline stage a model serves.
type Role string

const (
	RoleExtraction Role = "extraction"
	RoleAnalysis   Role = "analysis"
)

// Entry is one catalog model: a friendly alias mapped to a provider model id.
type Entry struct {
	Alias    string `yaml:"-"`
	Provider string `yaml:"provider"`
	ID       string `yaml:"id"`
}

// Catalog is the on-disk model catalog.
type Catalog struct {
	Models   map[string]Entry `yaml:"models"`
	Defaults map[Role]string  `yaml:"defaults"`
}

// DefaultCatalog covers the models the pipeline is tuned for out of the box.
func DefaultCatalog() Catalog {
	return Catalog{
		Models: map[string]Entry{
			"gpt-4o-mini":   {Provider: "openrouter", ID: "openai/gpt-4o-mini"},
			"gpt-4o":        {Provider: "openrouter", ID: "openai/gpt-4o"},
			"claude-haiku":  {Provider: "anthropic", ID: "claude-haiku-4-5-20251001"},
			"claude-sonnet": {Provider: "anthropic", ID: "claude-sonnet-4-5-20250929"},
		},
		Defaults: map[Role]string{
			RoleExtraction: "gpt-4o-mini",
			RoleAnalysis:   "gpt-4o",
		},
	}
}

// LoadCatalog reads a catalog file, falling back to DefaultCatalog when the
// file does not exist.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCatalog(), nil
		}
		return Catalog{}, eris.Wrapf(err, "capability: read catalog %s", path)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, eris.Wrapf(err, "capability: parse catalog %s", path)
	}
	if len(cat.Models) == 0 {
		return Catalog{}, eris.Errorf("capability: catalog %s lists no models", path)
	}
	if cat.Defaults == nil {
		cat.Defaults = map[Role]string{}
	}
	return cat, nil
}

// WithDefaults returns a copy of the catalog with role defaults overridden.
// Empty or "auto" values keep the catalog's own default.
func (c Catalog) WithDefaults(extraction, analysis string) Catalog {
	defaults := make(map[Role]string, len(c.Defaults))
	for role, name := range c.Defaults {
		defaults[role] = name
	}
	if extraction != "" && extraction != "auto" {
		defaults[RoleExtraction] = extraction
	}
	if analysis != "" && analysis != "auto" {
		defaults[RoleAnalysis] = analysis
	}
	c.Defaults = defaults
	return c
}

// Registry resolves model aliases to provider clients.
type Registry struct {
	catalog Catalog
	clients map[string]Client
}

// NewRegistry builds a registry over the catalog. The clients map is keyed
// by provider name ("openrouter", "anthropic").
func NewRegistry(catalog Catalog, clients map[string]Client) *Registry {
	return &Registry{catalog: catalog, clients: clients}
}

// Resolve maps a requested model name to a catalog entry. An empty name or
// "auto" resolves through the role's default. Aliases not in the catalog are
// passed through to OpenRouter verbatim, matching its open model namespace.
func (r *Registry) Resolve(name string, role Role) (Entry, error) {
	if name == "" || name == "auto" {
		def, ok := r.catalog.Defaults[role]
		if !ok {
			return Entry{}, eris.Errorf("capability: no default model for role %s", role)
		}
		name = def
	}

	if e, ok := r.catalog.Models[name]; ok {
		e.Alias = name
		return e, nil
	}
	return Entry{Alias: name, Provider: "openrouter", ID: name}, nil
}

// ClientFor returns the provider client for a resolved entry.
func (r *Registry) ClientFor(e Entry) (Client, error) {
	c, ok := r.clients[e.Provider]
	if !ok {
		return nil, eris.Errorf("capability: no client configured for provider %s", e.Provider)
	}
	return c, nil
}
