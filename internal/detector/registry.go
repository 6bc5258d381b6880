package detector

import (
	"fmt"
	"sort"
)

// Registry manages detectors by name.
type Registry struct {
	detectors map[string]Detector
}

// NewRegistry creates an empty detector registry.
func NewRegistry() *Registry {
	return &Registry{detectors: make(map[string]Detector)}
}

// Default returns a registry holding every built-in detector.
func Default() *Registry {
	r := NewRegistry()
	r.Register(NewThreatFeed())
	r.Register(NewDomainSimilarity())
	r.Register(NewCertificate())
	r.Register(NewRedirects())
	r.Register(NewEntropy())
	r.Register(NewBehavior())
	r.Register(NewC2())
	return r
}

// Register adds a detector to the registry, replacing any with the same name.
func (r *Registry) Register(d Detector) {
	r.detectors[d.Name()] = d
}

// Get retrieves a detector by name.
func (r *Registry) Get(name string) (Detector, error) {
	d, ok := r.detectors[name]
	if !ok {
		return nil, fmt.Errorf("detector %q not found", name)
	}
	return d, nil
}

// All returns all registered detectors sorted by name.
func (r *Registry) All() []Detector {
	result := make([]Detector, 0, len(r.detectors))
	for _, d := range r.detectors {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// Names returns the names of all registered detectors, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.detectors))
	for name := range r.detectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
