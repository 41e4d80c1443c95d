// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
)

func LoadRegistry(path string) (*FunctionRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg FunctionRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// Catalog is the live list of mounted functions served at GET /functions.
type Catalog struct {
	mu          sync.RWMutex
	version     string
	lastUpdated string
	functions   map[string]Function
}

func NewCatalog(version, lastUpdated string) *Catalog {
	return &Catalog{version: version, lastUpdated: lastUpdated, functions: make(map[string]Function)}
}

// Register adds or replaces fn. Descriptive fields left empty are taken from docs when present.
func (c *Catalog) Register(fn Function, docs *FunctionRegistry) {
	if docs != nil {
		for _, d := range docs.Functions {
			if d.Name != fn.Name {
				continue
			}
			if fn.DisplayName == "" {
				fn.DisplayName = d.DisplayName
			}
			if fn.Description == "" {
				fn.Description = d.Description
			}
			if fn.Category == "" {
				fn.Category = d.Category
			}
			if len(fn.ErrorCodes) == 0 {
				fn.ErrorCodes = d.ErrorCodes
			}
			if len(fn.Tags) == 0 {
				fn.Tags = d.Tags
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.functions[fn.Name] = fn
}

func (c *Catalog) Find(name string) (Function, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.functions[name]
	return fn, ok
}

// Snapshot returns the catalog sorted by name.
func (c *Catalog) Snapshot() FunctionRegistry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := FunctionRegistry{Version: c.version, LastUpdated: c.lastUpdated}
	for _, fn := range c.functions {
		out.Functions = append(out.Functions, fn)
	}
	sort.Slice(out.Functions, func(i, j int) bool { return out.Functions[i].Name < out.Functions[j].Name })
	return out
}
