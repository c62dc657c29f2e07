// Package export renders completed jobs into downloadable formats. Each
// exporter works from the persisted job snapshot; transient scratch state
// never reaches an export.
package export

import (
	"fmt"
	"sort"

	"github.com/lexigraph/lexigraph/pkg/model"
)

// Exporter renders one job into one output format.
type Exporter interface {
	// Format is the registry key, e.g. "json".
	Format() string
	// ContentType is the HTTP content type for the rendered output.
	ContentType() string
	// Export renders the job.
	Export(job *model.Job) ([]byte, error)
}

// Registry maps format names to exporters.
type Registry struct {
	exporters map[string]Exporter
}

// NewRegistry returns a registry with the default exporters installed.
func NewRegistry() *Registry {
	r := &Registry{exporters: make(map[string]Exporter)}
	r.Register(&JSONExporter{})
	r.Register(&JSONLExporter{})
	r.Register(&CSVExporter{})
	r.Register(&HTMLExporter{})
	return r
}

// Register installs an exporter under its format name.
func (r *Registry) Register(e Exporter) {
	r.exporters[e.Format()] = e
}

// Get returns the exporter for a format name.
func (r *Registry) Get(format string) (Exporter, error) {
	e, ok := r.exporters[format]
	if !ok {
		return nil, fmt.Errorf("unknown export format %q, available: %v", format, r.Formats())
	}
	return e, nil
}

// Formats lists registered format names, sorted.
func (r *Registry) Formats() []string {
	names := make([]string, 0, len(r.exporters))
	for name := range r.exporters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
