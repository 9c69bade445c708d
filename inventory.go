package ratewatch

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Canonical tool names exposed by the ratewatch server.
const (
	ToolCompanySearch            = "company_search"
	ToolCompanySearchInteractive = "company_search_interactive"
	ToolGetCompanyRating         = "get_company_rating"
	ToolManageSubscriptions      = "manage_subscriptions"
	ToolRequestCompany           = "request_company"
)

// ToolSet is a set of tool names.
type ToolSet map[string]struct{}

// NewToolSet builds a ToolSet from the given names.
func NewToolSet(names ...string) ToolSet {
	set := make(ToolSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Contains reports whether name is in the set.
func (ts ToolSet) Contains(name string) bool {
	_, ok := ts[name]
	return ok
}

// Sorted returns the set's members in sorted order.
func (ts ToolSet) Sorted() []string {
	names := make([]string, 0, len(ts))
	for name := range ts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing returns the members of ts absent from discovered, sorted.
func (ts ToolSet) Missing(discovered ToolSet) []string {
	var missing []string
	for name := range ts {
		if !discovered.Contains(name) {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// Inventory maps a context name to the tools that context must expose.
type Inventory map[string]ToolSet

// DefaultInventory is the expected tool inventory for the built-in contexts.
func DefaultInventory() Inventory {
	return Inventory{
		"standard": NewToolSet(
			ToolCompanySearch,
			ToolGetCompanyRating,
		),
		"risk_manager": NewToolSet(
			ToolCompanySearch,
			ToolCompanySearchInteractive,
			ToolGetCompanyRating,
			ToolManageSubscriptions,
			ToolRequestCompany,
		),
	}
}

// Contexts returns the inventory's context names in sorted order.
func (inv Inventory) Contexts() []string {
	names := make([]string, 0, len(inv))
	for name := range inv {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// inventoryFile is the on-disk YAML shape accepted by LoadInventory.
type inventoryFile struct {
	Contexts map[string][]string `yaml:"contexts"`
}

// LoadInventory reads an expected-tool inventory from a YAML file:
//
//	contexts:
//	  standard:
//	    - company_search
//	    - get_company_rating
//
// Contexts with an empty tool list are rejected.
func LoadInventory(path string) (Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}

	var file inventoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}
	if len(file.Contexts) == 0 {
		return nil, fmt.Errorf("inventory %s defines no contexts", path)
	}

	inv := make(Inventory, len(file.Contexts))
	for name, tools := range file.Contexts {
		if len(tools) == 0 {
			return nil, fmt.Errorf("inventory %s: context %q has no tools", path, name)
		}
		inv[name] = NewToolSet(tools...)
	}
	return inv, nil
}
