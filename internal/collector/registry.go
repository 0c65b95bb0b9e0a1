package collector

import (
	"sort"
	"strings"

	"ghostfetch/internal/shared/errs"
)

// Registry 是 collector 的只读注册表（按 name 索引，大小写不敏感）。
type Registry struct {
	byName map[string]Collector
}

func NewRegistry(collectors ...Collector) (Registry, error) {
	byName := make(map[string]Collector, len(collectors))
	for _, c := range collectors {
		if c == nil {
			return Registry{}, errs.New(errs.Configuration, "collector must not be nil")
		}
		name := strings.ToLower(strings.TrimSpace(c.Name()))
		if name == "" {
			return Registry{}, errs.New(errs.Configuration, "collector name must not be empty")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, errs.New(errs.Configuration, "duplicate collector: ", name)
		}
		byName[name] = c
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (Collector, bool) {
	if r.byName == nil {
		return nil, false
	}
	c, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Names lists the registered collectors, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
