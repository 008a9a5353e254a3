// Package rulepack loads built-in and on-disk rulepacks and compiles them.
package rulepack

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hejijunhao/bioslogtriage/internal/engine/rules"
)

// Default is the rulepack used when none is requested.
const Default = "faults"

//go:embed packs/*.yaml
var packs embed.FS

// Info describes a built-in rulepack.
type Info struct {
	Name        string
	Description string
	Rules       int
}

// Builtins lists the embedded rulepacks by name.
func Builtins() ([]Info, error) {
	entries, err := fs.ReadDir(packs, "packs")
	if err != nil {
		return nil, fmt.Errorf("rulepack: list builtins: %w", err)
	}
	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".yaml")
		m, err := builtin(name)
		if err != nil {
			return nil, err
		}
		desc, _ := m["description"].(string)
		list, _ := m["rules"].([]any)
		infos = append(infos, Info{Name: name, Description: desc, Rules: len(list)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// IsBuiltin reports whether ref names an embedded rulepack.
func IsBuiltin(ref string) bool {
	_, err := fs.Stat(packs, builtinPath(ref))
	return err == nil
}

// Load resolves ref to a parsed rulepack mapping. A ref naming a built-in pack
// wins over a file of the same name; anything else is read from disk as YAML
// or JSON.
func Load(ref string) (map[string]any, error) {
	if IsBuiltin(ref) {
		return builtin(ref)
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("rulepack: read %s: %w", ref, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rulepack: %s: %w", ref, err)
	}
	return m, nil
}

// Parse decodes a YAML (or JSON) document into a mapping.
func Parse(data []byte) (map[string]any, error) {
	var doc any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("rulepack must be a mapping")
	}
	return m, nil
}

// Compile loads and compiles one rulepack.
func Compile(ref string) ([]rules.Rule, error) {
	m, err := Load(ref)
	if err != nil {
		return nil, err
	}
	rs, err := rules.Compile(m)
	if err != nil {
		return nil, fmt.Errorf("rulepack %s: %w", ref, err)
	}
	return rs, nil
}

// LoadAll compiles refs in order and concatenates their rules. An empty list
// loads Default.
func LoadAll(refs []string) ([]rules.Rule, error) {
	if len(refs) == 0 {
		refs = []string{Default}
	}
	var all []rules.Rule
	seen := make(map[string]string)
	for _, ref := range refs {
		rs, err := Compile(ref)
		if err != nil {
			return nil, err
		}
		for _, r := range rs {
			if prev, dup := seen[r.ID]; dup {
				return nil, fmt.Errorf("rulepack %s: rule id %q already defined by %s", ref, r.ID, prev)
			}
			seen[r.ID] = ref
		}
		all = append(all, rs...)
	}
	return all, nil
}

func builtinPath(name string) string {
	return path.Join("packs", name+".yaml")
}

func builtin(name string) (map[string]any, error) {
	data, err := packs.ReadFile(builtinPath(name))
	if err != nil {
		return nil, fmt.Errorf("rulepack: builtin %s: %w", name, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rulepack: builtin %s: %w", name, err)
	}
	return m, nil
}
