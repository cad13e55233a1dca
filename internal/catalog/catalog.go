// Package catalog serves the static service hierarchy: main services and the
// sub-services nested under them.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"steelcraft-site/internal/content"
	"steelcraft-site/internal/domain"
)

type Catalog struct {
	services []domain.Service
	bySlug   map[string]int
	byID     map[string]int
}

// Default loads the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(content.ServicesJSON())
}

// LoadFile reads a catalog from a JSON file on disk.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and checks a catalog. Slugs and ids must be unique, and every
// sub-service must point at an existing main service.
func Parse(raw []byte) (*Catalog, error) {
	var services []domain.Service
	if err := json.Unmarshal(raw, &services); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return New(services)
}

func New(services []domain.Service) (*Catalog, error) {
	c := &Catalog{
		services: services,
		bySlug:   make(map[string]int, len(services)),
		byID:     make(map[string]int, len(services)),
	}
	for i, s := range services {
		if strings.TrimSpace(s.ID) == "" || strings.TrimSpace(s.Slug) == "" {
			return nil, fmt.Errorf("catalog: service %d has empty id or slug", i)
		}
		if _, dup := c.bySlug[s.Slug]; dup {
			return nil, fmt.Errorf("catalog: duplicate slug %q", s.Slug)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate id %q", s.ID)
		}
		c.bySlug[s.Slug] = i
		c.byID[s.ID] = i
	}
	for _, s := range services {
		if s.IsMainService {
			continue
		}
		if s.ParentService == "" {
			return nil, fmt.Errorf("catalog: sub-service %q has no parent", s.Slug)
		}
		p, ok := c.byID[s.ParentService]
		if !ok {
			return nil, fmt.Errorf("catalog: sub-service %q references unknown parent %q", s.Slug, s.ParentService)
		}
		if !services[p].IsMainService {
			return nil, fmt.Errorf("catalog: parent %q of %q is not a main service", services[p].Slug, s.Slug)
		}
	}
	if len(services) == 0 {
		return nil, errors.New("catalog: no services")
	}
	return c, nil
}

// All returns every service in file order.
func (c *Catalog) All() []domain.Service {
	return append([]domain.Service(nil), c.services...)
}

// Main returns the main services in file order.
func (c *Catalog) Main() []domain.Service {
	var out []domain.Service
	for _, s := range c.services {
		if s.IsMainService {
			out = append(out, s)
		}
	}
	return out
}

func (c *Catalog) BySlug(slug string) (domain.Service, bool) {
	i, ok := c.bySlug[slug]
	if !ok {
		return domain.Service{}, false
	}
	return c.services[i], true
}

// Children returns the sub-services of main, following its SubServices order
// first and then any other service naming main as parent.
func (c *Catalog) Children(main domain.Service) []domain.Service {
	var out []domain.Service
	seen := map[string]bool{}
	for _, id := range main.SubServices {
		if i, ok := c.byID[id]; ok && c.services[i].ParentService == main.ID {
			out = append(out, c.services[i])
			seen[id] = true
		}
	}
	for _, s := range c.services {
		if !s.IsMainService && s.ParentService == main.ID && !seen[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

func (c *Catalog) Parent(sub domain.Service) (domain.Service, bool) {
	if sub.IsMainService || sub.ParentService == "" {
		return domain.Service{}, false
	}
	i, ok := c.byID[sub.ParentService]
	if !ok {
		return domain.Service{}, false
	}
	return c.services[i], true
}

// Others returns the main services other than s, at most limit of them.
func (c *Catalog) Others(s domain.Service, limit int) []domain.Service {
	var out []domain.Service
	for _, m := range c.Main() {
		if len(out) == limit {
			break
		}
		if m.ID != s.ID && m.ID != s.ParentService {
			out = append(out, m)
		}
	}
	return out
}

// Resolve maps URL segments under /services to a service. One segment must
// name a main service; two must name a main service and one of its children.
func (c *Catalog) Resolve(segments ...string) (domain.Service, bool) {
	switch len(segments) {
	case 1:
		s, ok := c.BySlug(segments[0])
		if !ok || !s.IsMainService {
			return domain.Service{}, false
		}
		return s, true
	case 2:
		parent, ok := c.BySlug(segments[0])
		if !ok || !parent.IsMainService {
			return domain.Service{}, false
		}
		child, ok := c.BySlug(segments[1])
		if !ok || child.IsMainService || child.ParentService != parent.ID {
			return domain.Service{}, false
		}
		return child, true
	default:
		return domain.Service{}, false
	}
}

// CanonicalPath returns /services/<slug> for a main service and
// /services/<parent>/<slug> for a sub-service.
func (c *Catalog) CanonicalPath(s domain.Service) string {
	if parent, ok := c.Parent(s); ok {
		return "/services/" + parent.Slug + "/" + s.Slug
	}
	return "/services/" + s.Slug
}
