package vectorstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// nameRegistryFile is stored next to the chromem data.
const nameRegistryFile = "display_names.json"

// nameRegistry maps sanitized collection names back to the human-readable
// disease names they were created with. chromem persists collection metadata
// as opaque gob files and offers no way to read it back, so the store keeps
// this small registry itself.
//
// Not safe for concurrent use; callers hold the store mutex.
type nameRegistry struct {
	path  string
	names map[string]string
}

func newNameRegistry(dir string) *nameRegistry {
	return &nameRegistry{
		path:  filepath.Join(dir, nameRegistryFile),
		names: make(map[string]string),
	}
}

// loadNameRegistry reads the registry from dir. A missing file yields an
// empty registry; an unreadable or corrupt file is an error the caller may
// choose to degrade on.
func loadNameRegistry(dir string) (*nameRegistry, error) {
	r := newNameRegistry(dir)

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading display name registry: %w", err)
	}

	if err := json.Unmarshal(data, &r.names); err != nil {
		return nil, fmt.Errorf("parsing display name registry %s: %w", r.path, err)
	}
	if r.names == nil {
		r.names = make(map[string]string)
	}
	return r, nil
}

// save writes the registry atomically (write to temp file, then rename).
func (r *nameRegistry) save() error {
	data, err := json.MarshalIndent(r.names, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding display name registry: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing display name registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replacing display name registry: %w", err)
	}
	return nil
}

// set records the display name for a collection if none is recorded yet.
// The first writer wins, matching get-or-create collection semantics.
// Reports whether the registry changed.
func (r *nameRegistry) set(collection, displayName string) bool {
	if _, ok := r.names[collection]; ok {
		return false
	}
	r.names[collection] = displayName
	return true
}

// remove drops a collection's entry. Reports whether the registry changed.
func (r *nameRegistry) remove(collection string) bool {
	if _, ok := r.names[collection]; !ok {
		return false
	}
	delete(r.names, collection)
	return true
}

// displayName returns the recorded display name for a collection, falling
// back to the collection name itself.
func (r *nameRegistry) displayName(collection string) string {
	if name, ok := r.names[collection]; ok && name != "" {
		return name
	}
	return collection
}

// prune drops entries for collections that no longer exist.
// Reports whether the registry changed.
func (r *nameRegistry) prune(existing map[string]bool) bool {
	changed := false
	for collection := range r.names {
		if !existing[collection] {
			delete(r.names, collection)
			changed = true
		}
	}
	return changed
}
