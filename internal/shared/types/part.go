package types

import (
	"fmt"
	"slices"
	"strings"
)

// Cardinality describes how many providers a requirement binds
type Cardinality string

const (
	ExactlyOne Cardinality = "exactly-one"
	ZeroOrOne  Cardinality = "zero-or-one"
	Many       Cardinality = "many"
)

// Sharing is the instantiation policy of a part
type Sharing string

const (
	Singleton  Sharing = "singleton"
	PerRequest Sharing = "per-request"
)

// Stage tags an auto-loaded part with the startup point it is activated at
type Stage string

const (
	StageNone                  Stage = ""
	StageBeforeExtensions      Stage = "before-extensions"
	StageAfterExtensions       Stage = "after-extensions"
	StageAfterExtensionsLoaded Stage = "after-extensions-loaded"
	StageAppLoaded             Stage = "app-loaded"
)

// Stages lists every lifecycle stage in activation order
var Stages = []Stage{
	StageBeforeExtensions,
	StageAfterExtensions,
	StageAfterExtensionsLoaded,
	StageAppLoaded,
}

// Ordinal returns the 1-based position of the stage, 0 for StageNone and unknown values
func (s Stage) Ordinal() int {
	return slices.Index(Stages, s) + 1
}

// ParseCardinality normalizes a declared cardinality, defaulting to ExactlyOne
func ParseCardinality(s string) (Cardinality, error) {
	switch Cardinality(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExactlyOne, "one":
		return ExactlyOne, nil
	case ZeroOrOne, "optional":
		return ZeroOrOne, nil
	case Many, "all":
		return Many, nil
	}
	return "", fmt.Errorf("unknown cardinality %q", s)
}

// ParseSharing normalizes a declared sharing policy, defaulting to Singleton
func ParseSharing(s string) (Sharing, error) {
	switch Sharing(strings.ToLower(strings.TrimSpace(s))) {
	case "", Singleton, "shared":
		return Singleton, nil
	case PerRequest, "non-shared":
		return PerRequest, nil
	}
	return "", fmt.Errorf("unknown sharing policy %q", s)
}

// ParseStage validates a declared lifecycle stage; empty means not auto-loaded
func ParseStage(s string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(s)))
	if stage == StageNone || stage.Ordinal() > 0 {
		return stage, nil
	}
	return "", fmt.Errorf("unknown lifecycle stage %q", s)
}

// Requirement is a contract a part needs in order to be constructed
type Requirement struct {
	Contract    string      `json:"contract"`
	Cardinality Cardinality `json:"cardinality"`
	// Lazy requirements are handed out as deferred references and may close cycles
	Lazy bool `json:"lazy,omitempty"`
}

// PartMetadata is the declarative metadata attached to a part
type PartMetadata struct {
	Order float64           `json:"order,omitempty"`
	Stage Stage             `json:"stage,omitempty"`
	GUID  string            `json:"guid,omitempty"`
	Extra map[string]string `json:"extra,omitempty"`
}

// PartDescriptor is a declared unit of composition
type PartDescriptor struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Module    string        `json:"module"`
	Contracts []string      `json:"contracts"`
	Requires  []Requirement `json:"requires,omitempty"`
	Sharing   Sharing       `json:"sharing"`
	Metadata  PartMetadata  `json:"metadata"`
}

// Satisfies reports whether the part provides the contract
func (p PartDescriptor) Satisfies(contract string) bool {
	return slices.Contains(p.Contracts, contract)
}

// AutoLoaded reports whether the part is activated by the lifecycle loader
func (p PartDescriptor) AutoLoaded() bool {
	return p.Metadata.Stage != StageNone
}

// Validate checks the descriptor is complete enough to be resolved
func (p PartDescriptor) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("part ID cannot be empty")
	}
	if p.Type == "" {
		return fmt.Errorf("part %s: implementation type cannot be empty", p.ID)
	}
	if len(p.Contracts) == 0 && !p.AutoLoaded() {
		return fmt.Errorf("part %s: declares no contract and is not auto-loaded", p.ID)
	}
	for _, req := range p.Requires {
		if req.Contract == "" {
			return fmt.Errorf("part %s: requirement with empty contract", p.ID)
		}
	}
	return nil
}
