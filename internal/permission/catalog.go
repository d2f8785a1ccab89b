package permission

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/frahmantamala/member-management/internal/core/common/validation"
)

// Definition is one catalog entry as written in the definition file.
type Definition struct {
	Code        string `yaml:"code" json:"code"`
	Name        string `yaml:"name" json:"name"`
	Module      string `yaml:"module" json:"module"`
	Action      Action `yaml:"action" json:"action"`
	Description string `yaml:"description" json:"description,omitempty"`
}

type catalogModule struct {
	Module      string       `yaml:"module"`
	Permissions []Definition `yaml:"permissions"`
}

type catalogFile struct {
	Version int             `yaml:"version"`
	Modules []catalogModule `yaml:"modules"`
}

// ParseCatalog reads a YAML catalog. Entries inherit their group's module
// unless they set one themselves.
func ParseCatalog(data []byte) ([]Definition, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse permission catalog: %w", err)
	}

	var defs []Definition
	for _, m := range f.Modules {
		for _, d := range m.Permissions {
			if d.Module == "" {
				d.Module = m.Module
			}
			defs = append(defs, d)
		}
	}
	if len(defs) == 0 {
		return nil, errors.New("permission catalog is empty")
	}
	return defs, nil
}

func LoadCatalogFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permission catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

func (d Definition) Validate() error {
	if !validation.IsPermissionCode(d.Code) {
		return fmt.Errorf("code %q must match [A-Z0-9_]+", d.Code)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%s: name is required", d.Code)
	}
	if strings.TrimSpace(d.Module) == "" {
		return fmt.Errorf("%s: module is required", d.Code)
	}
	if !d.Action.Valid() {
		return fmt.Errorf("%s: unknown action %q", d.Code, d.Action)
	}
	return nil
}

// driftsFrom reports whether any descriptive field differs from the stored row.
func (d Definition) driftsFrom(p *Permission) bool {
	return d.Name != p.Name ||
		d.Module != p.Module ||
		d.Action != p.Action ||
		d.Description != p.Description
}
