package imagegen

import (
	"context"
	"fmt"

	"github.com/akarpov/wortkarte/internal/extract"
)

// Provider turns a prompt into an image reference. Implementations
// wrap one concrete backend; the sync backend answers inline, the
// polling backend submits a task and waits for it.
type Provider interface {
	Generate(ctx context.Context, prompt string, ref *ReferenceImage) (extract.ImageRef, error)
}

// ProviderKind selects the configured backend once at startup.
type ProviderKind int

const (
	ProviderNone ProviderKind = iota
	ProviderSync
	ProviderPolling
)

func ParseProviderKind(s string) (ProviderKind, error) {
	switch s {
	case "", "none":
		return ProviderNone, nil
	case "sync":
		return ProviderSync, nil
	case "polling":
		return ProviderPolling, nil
	}
	return ProviderNone, fmt.Errorf("unknown image provider %q (want sync, polling, or none)", s)
}

func (k ProviderKind) String() string {
	switch k {
	case ProviderSync:
		return "sync"
	case ProviderPolling:
		return "polling"
	}
	return "none"
}
