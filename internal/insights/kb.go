// Package insights loads the curated knowledge base and evaluates its rule
// modules against a profile's genotypes.
package insights

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ModuleRule maps one rsID's genotypes to a summary. Rules are evaluated in
// order; the first genotype match wins.
type ModuleRule struct {
	RsID      string   `json:"rsid"`
	Genotypes []string `json:"genotypes"`
	Summary   string   `json:"summary"`
}

// EvidenceLevel grades how strong the literature behind a module is.
type EvidenceLevel struct {
	Grade   string `json:"grade"`
	Summary string `json:"summary"`
}

// KnowledgeModule is one curated topic: the rsIDs it reads, the rules that
// interpret them, and the wording shown when no rule matches.
type KnowledgeModule struct {
	ModuleID       string        `json:"module_id"`
	Category       string        `json:"category"`
	DisplayName    string        `json:"display_name"`
	RsIDs          []string      `json:"rsids"`
	Rules          []ModuleRule  `json:"rules"`
	DefaultSummary string        `json:"default_summary"`
	Suggestion     *string       `json:"suggestion,omitempty"`
	EvidenceLevel  EvidenceLevel `json:"evidence_level"`
	Limitations    string        `json:"limitations"`
	References     []string      `json:"references"`
}

// Manifest names the knowledge base version, the genome build and strand its
// rules assume, and the module files to load.
type Manifest struct {
	KBVersion   string   `json:"kb_version"`
	Build       string   `json:"build"`
	Strand      string   `json:"strand"`
	ModuleFiles []string `json:"module_files"`
}

const manifestFilename = "kb_manifest.json"

// LoadManifest reads kb_manifest.json from the knowledge base directory.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFilename))
	if err != nil {
		return nil, fmt.Errorf("read knowledge base manifest: %w", err)
	}
	manifest := new(Manifest)
	if err := json.Unmarshal(data, manifest); err != nil {
		return nil, fmt.Errorf("parse knowledge base manifest: %w", err)
	}
	if manifest.KBVersion == "" {
		return nil, fmt.Errorf("knowledge base manifest missing kb_version")
	}
	return manifest, nil
}

// LoadModules reads every module file the manifest names, in manifest order.
func LoadModules(dir string, manifest *Manifest) ([]*KnowledgeModule, error) {
	modules := make([]*KnowledgeModule, 0, len(manifest.ModuleFiles))
	for _, name := range manifest.ModuleFiles {
		data, err := os.ReadFile(filepath.Join(dir, "modules", name))
		if err != nil {
			return nil, fmt.Errorf("read knowledge module %s: %w", name, err)
		}
		module := new(KnowledgeModule)
		if err := json.Unmarshal(data, module); err != nil {
			return nil, fmt.Errorf("parse knowledge module %s: %w", name, err)
		}
		if module.ModuleID == "" {
			return nil, fmt.Errorf("knowledge module %s missing module_id", name)
		}
		modules = append(modules, module)
	}
	return modules, nil
}

// Load reads the manifest and all of its modules from dir.
func Load(dir string) (*Manifest, []*KnowledgeModule, error) {
	manifest, err := LoadManifest(dir)
	if err != nil {
		return nil, nil, err
	}
	modules, err := LoadModules(dir, manifest)
	if err != nil {
		return nil, nil, err
	}
	return manifest, modules, nil
}

// CuratedRsIDs is the union of rsIDs across all modules. This set defines
// what a curated-mode import keeps.
func CuratedRsIDs(modules []*KnowledgeModule) map[string]struct{} {
	rsids := make(map[string]struct{})
	for _, module := range modules {
		for _, rsid := range module.RsIDs {
			rsids[rsid] = struct{}{}
		}
	}
	return rsids
}
