package geo

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed data/*.yaml
var embedded embed.FS

var (
	ErrInvalidCountryCode = errors.New("country code must be two letters")
	ErrMissingName        = errors.New("name is required")
)

// CountryData is one country file: the country, its provinces and their cities.
type CountryData struct {
	Code      string         `yaml:"code" json:"code"`
	Name      string         `yaml:"name" json:"name"`
	Provinces []ProvinceData `yaml:"provinces" json:"provinces"`
}

type ProvinceData struct {
	Name   string     `yaml:"name" json:"name"`
	Code   string     `yaml:"code" json:"code,omitempty"`
	Cities []CityData `yaml:"cities" json:"cities"`
}

// CityData accepts either a bare name or a mapping with name and aliases:
//
//	cities:
//	  - Utrecht
//	  - name: "'s-Hertogenbosch"
//	    aliases: [Den Bosch]
type CityData struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

func (c *CityData) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		c.Name = v
	case map[string]interface{}:
		name, _ := v["name"].(string)
		c.Name = name
		if list, ok := v["aliases"].([]interface{}); ok {
			for _, a := range list {
				if s, ok := a.(string); ok {
					c.Aliases = append(c.Aliases, s)
				}
			}
		}
	default:
		return fmt.Errorf("city entry must be a name or a mapping, got %T", raw)
	}
	return nil
}

// Validate normalizes names in place and rejects incomplete entries.
func (d *CountryData) Validate() error {
	d.Code = strings.ToUpper(strings.TrimSpace(d.Code))
	if len(d.Code) != 2 {
		return fmt.Errorf("%w: %q", ErrInvalidCountryCode, d.Code)
	}
	d.Name = Normalize(d.Name)
	if d.Name == "" {
		return fmt.Errorf("country %s: %w", d.Code, ErrMissingName)
	}

	for i := range d.Provinces {
		p := &d.Provinces[i]
		p.Name = Normalize(p.Name)
		if p.Name == "" {
			return fmt.Errorf("country %s province #%d: %w", d.Code, i+1, ErrMissingName)
		}
		for j := range p.Cities {
			c := &p.Cities[j]
			c.Name = Normalize(c.Name)
			if c.Name == "" || Slug(c.Name) == "" {
				return fmt.Errorf("country %s province %s city #%d: %w", d.Code, p.Name, j+1, ErrMissingName)
			}
			for k := range c.Aliases {
				c.Aliases[k] = Normalize(c.Aliases[k])
			}
		}
	}
	return nil
}

// ParseCountry decodes and validates one country document.
func ParseCountry(b []byte) (CountryData, error) {
	var d CountryData
	if err := yaml.Unmarshal(b, &d); err != nil {
		return CountryData{}, fmt.Errorf("parse country yaml: %w", err)
	}
	if err := d.Validate(); err != nil {
		return CountryData{}, err
	}
	return d, nil
}

// LoadCountryFiles parses every *.yaml file at the root of fsys, in name order.
func LoadCountryFiles(fsys fs.FS) ([]CountryData, error) {
	names, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]CountryData, 0, len(names))
	for _, name := range names {
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		d, err := ParseCountry(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// DataFS returns the directory override when set, otherwise the embedded data.
func DataFS(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	return fs.Sub(embedded, "data")
}
