package loader

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func newTestLoader(cfg Config) *Loader {
	return &Loader{Config: cfg, Logger: log.New(io.Discard)}
}

func TestRelativePath_StripsPatternsInOrder(t *testing.T) {
	l := newTestLoader(Config{
		RelativePathPrefix: "settings",
		NameRegexReplace:   []string{`^ci-`, `-deploy$`},
	})

	got, err := l.RelativePath("ci-payments-deploy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "settings/payments.yaml" {
		t.Fatalf("expected settings/payments.yaml, got %q", got)
	}
}

func TestRelativePath_NoPatternsLeavesNameUntouched(t *testing.T) {
	l := newTestLoader(Config{RelativePathPrefix: "settings"})

	got, err := l.RelativePath("payments")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "settings/payments.yaml" {
		t.Fatalf("got %q", got)
	}
}

func TestRelativePath_BadPatternErrors(t *testing.T) {
	l := newTestLoader(Config{NameRegexReplace: []string{`([`}})

	if _, err := l.RelativePath("job"); err == nil {
		t.Fatalf("expected an error for an uncompilable pattern")
	}
}
