package commands

import (
	"errors"
	"fmt"

	"PipelineDash/internal/domain"
)

// ErrUnknownCommand is returned when resolving a name that was never registered.
var ErrUnknownCommand = errors.New("unknown command")

// LastRun locates the most recent trace a command leaves in the store.
type LastRun struct {
	Table   domain.Table
	Field   string
	Filters []domain.Filter
}

// Watch correlates a command with the table rows it creates, so their
// arrival can be reported after an invocation.
type Watch struct {
	Table    domain.Table
	Field    string
	Describe func(domain.Row) (string, domain.Severity)
}

// Definition describes one triggerable remote function.
type Definition struct {
	Name    string
	LastRun *LastRun
	Watch   *Watch
}

// DescribeTitle renders "  • <label>: <title>" using fallback for untitled rows.
func DescribeTitle(label, fallback string, severity domain.Severity) func(domain.Row) (string, domain.Severity) {
	return func(r domain.Row) (string, domain.Severity) {
		title, ok := r.String("title")
		if !ok || title == "" {
			title = fallback
		}
		return fmt.Sprintf("  • %s: %s", label, title), severity
	}
}

// Registry keeps command definitions in registration order.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: map[string]Definition{}}
}

// Register adds or replaces a definition.
func (r *Registry) Register(def Definition) {
	if r.defs == nil {
		r.defs = map[string]Definition{}
	}
	if _, exists := r.defs[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.defs[def.Name] = def
}

// Resolve returns a definition by name.
func (r *Registry) Resolve(name string) (Definition, error) {
	if def, ok := r.defs[name]; ok {
		return def, nil
	}
	return Definition{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

// All lists the definitions in registration order.
func (r *Registry) All() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

// Names lists registered command names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Defaults registers the pipeline's standard remote functions.
func Defaults() *Registry {
	reg := NewRegistry()
	reg.Register(Definition{
		Name:    "scraper-job",
		LastRun: &LastRun{Table: domain.TableSources, Field: "last_scraped_at"},
		Watch: &Watch{
			Table:    domain.TableRawItems,
			Field:    "scraped_at",
			Describe: DescribeTitle("Scraped", "Item", domain.SeverityInfo),
		},
	})
	reg.Register(Definition{
		Name: "ai-processor",
		LastRun: &LastRun{
			Table:   domain.TableRawItems,
			Field:   "updated_at",
			Filters: []domain.Filter{domain.Eq("processed", true)},
		},
		Watch: &Watch{
			Table:    domain.TableCards,
			Field:    "created_at",
			Describe: DescribeTitle("Created card", "Card", domain.SeveritySuccess),
		},
	})
	reg.Register(Definition{
		Name:    "ai-prompt-evolver",
		LastRun: &LastRun{Table: domain.TableCards, Field: "updated_at"},
	})
	reg.Register(Definition{
		Name:    "discovery-feed",
		LastRun: &LastRun{Table: domain.TableCards, Field: "created_at"},
	})
	reg.Register(Definition{
		Name:    "feedback-processor",
		LastRun: &LastRun{Table: domain.TableCards, Field: "updated_at"},
	})
	reg.Register(Definition{
		Name:    "summary-updater",
		LastRun: &LastRun{Table: domain.TableCards, Field: "updated_at"},
	})
	return reg
}
