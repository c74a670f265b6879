package commands

import (
	"errors"
	"testing"

	"PipelineDash/internal/domain"
)

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := Defaults()
	def, err := reg.Resolve("scraper-job")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if def.Watch == nil || def.Watch.Table != domain.TableRawItems || def.Watch.Field != "scraped_at" {
		t.Fatalf("unexpected watch: %+v", def.Watch)
	}

	_, err = reg.Resolve("nope")
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestRegistryKeepsOrderOnReplace(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(Definition{Name: "b"})
	reg.Register(Definition{Name: "a"})
	reg.Register(Definition{Name: "b", LastRun: &LastRun{Table: domain.TableCards, Field: "created_at"}})

	names := reg.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("unexpected order: %v", names)
	}
	if reg.All()[0].LastRun == nil {
		t.Fatalf("replacement not stored")
	}
}

func TestDefaultsWatchOnlyCorrelatedCommands(t *testing.T) {
	t.Parallel()

	watched := map[string]bool{}
	for _, def := range Defaults().All() {
		if def.Watch != nil {
			watched[def.Name] = true
		}
	}
	if len(watched) != 2 || !watched["scraper-job"] || !watched["ai-processor"] {
		t.Fatalf("unexpected watched set: %v", watched)
	}
}

func TestDescribeTitle(t *testing.T) {
	t.Parallel()

	describe := DescribeTitle("Created card", "Card", domain.SeveritySuccess)

	msg, sev := describe(domain.Row{"title": "Rust 2.0 released"})
	if msg != "  • Created card: Rust 2.0 released" || sev != domain.SeveritySuccess {
		t.Fatalf("unexpected %q %q", msg, sev)
	}

	msg, _ = describe(domain.Row{"title": ""})
	if msg != "  • Created card: Card" {
		t.Fatalf("unexpected fallback %q", msg)
	}
}
