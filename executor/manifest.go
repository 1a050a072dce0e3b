package executor

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/rainforge/executor-go/internal/schema"
)

// TaskManifestEntry describes one registered task.
type TaskManifestEntry struct {
	Name   string `json:"name"`
	InArgs *int   `json:"in_args,omitempty"`
}

// TaskManifest is a self-description of every task an executor exposes
// It plays no role in the register/call/result wire protocol; it is a
// local self-check run once, before Start connects.
type TaskManifest struct {
	Tasks []TaskManifestEntry `json:"tasks"`
}

// Manifest builds the manifest for e's current registry. Entries are
// sorted by name for a deterministic document.
func (e *Executor) Manifest() TaskManifest {
	names := make([]string, 0, len(e.handlers))
	for name := range e.handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	m := TaskManifest{Tasks: make([]TaskManifestEntry, 0, len(names))}
	for _, name := range names {
		entry := TaskManifestEntry{Name: name}
		if arity := e.handlers[name].arity; arity >= 0 {
			a := arity
			entry.InArgs = &a
		}
		m.Tasks = append(m.Tasks, entry)
	}
	return m
}

// ValidateManifest validates a JSON manifest document against the bundled
// schema using gojsonschema.Validate.
func ValidateManifest(doc []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(schema.ManifestSchema)
	documentLoader := gojsonschema.NewBytesLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("executor: manifest schema validation: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("executor: manifest is invalid: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// validateOwnManifest builds e's manifest and validates it against the
// bundled schema. Called once by Start before connecting.
func (e *Executor) validateOwnManifest() error {
	doc, err := json.Marshal(e.Manifest())
	if err != nil {
		return fmt.Errorf("executor: marshal manifest: %w", err)
	}
	return ValidateManifest(doc)
}
