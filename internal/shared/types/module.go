package types

import "strings"

// Artifact is one content-hashed file (or in-process blob) belonging to a module
type Artifact struct {
	Path      string `json:"path"`
	Hash      string `json:"hash"`
	MediaType string `json:"media_type,omitempty"`
}

// ModuleDescriptor describes one plugin module found by the catalog
type ModuleDescriptor struct {
	Name      string           `json:"name"`
	Version   string           `json:"version"`
	Source    string           `json:"source"`
	Artifacts []Artifact       `json:"artifacts"`
	Parts     []PartDescriptor `json:"parts,omitempty"`
}

// Identity returns the stable name@version identity of the module
func (m ModuleDescriptor) Identity() string {
	if m.Version == "" {
		return m.Name
	}
	return m.Name + "@" + m.Version
}

// Hashes returns the ordered content hashes of the module's artifacts
func (m ModuleDescriptor) Hashes() []string {
	hashes := make([]string, len(m.Artifacts))
	for i, a := range m.Artifacts {
		hashes[i] = a.Hash
	}
	return hashes
}

// Key returns the fingerprint input for the module
func (m ModuleDescriptor) Key() ModuleKey {
	return ModuleKey{Identity: m.Identity(), Hashes: m.Hashes()}
}

// ModuleKey is the identity and hash list a fingerprint is computed from
type ModuleKey struct {
	Identity string   `json:"identity"`
	Hashes   []string `json:"hashes"`
}

// String renders the key as the concatenated fingerprint input
func (k ModuleKey) String() string {
	return k.Identity + ":" + strings.Join(k.Hashes, ",")
}
