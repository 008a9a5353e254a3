package bioslog

import "github.com/hejijunhao/bioslogtriage/internal/rulepack"

// Rulepack describes a built-in rulepack.
type Rulepack struct {
	Name        string // e.g. "faults"
	Description string
	Rules       int  // number of rules
	Default     bool // used when no rulepack is selected
}

// Rulepacks lists the built-in rulepacks. Read-only: consumers can inspect
// what ships with the library and select packs with WithRulepacks.
func Rulepacks() ([]Rulepack, error) {
	infos, err := rulepack.Builtins()
	if err != nil {
		return nil, err
	}
	packs := make([]Rulepack, len(infos))
	for i, info := range infos {
		packs[i] = Rulepack{
			Name:        info.Name,
			Description: info.Description,
			Rules:       info.Rules,
			Default:     info.Name == rulepack.Default,
		}
	}
	return packs, nil
}
