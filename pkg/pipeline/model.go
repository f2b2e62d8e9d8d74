// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"encoding/json"
)

// ErrorVariantName is the name of the marker variant left in a phase when
// an embed generator fails. Declared and generated variants cannot use it.
const ErrorVariantName = "error-variant"

const (
	// StepShell is the kind of a ShellCommand step.
	StepShell StepKind = "sh"
	// StepCredentials is the kind of a CredentialScope step.
	StepCredentials StepKind = "with-credentials"
	// StepEmbed is the kind of an EmbedDirective.
	StepEmbed StepKind = "embed"
)

type (
	// StepKind names the shape of a Step.
	StepKind string

	// Step is one action within a variant. The set of implementations is
	// closed: ShellCommand, CredentialScope and EmbedDirective.
	Step interface {
		Kind() StepKind
		isStep()
	}

	// ShellCommand is a command line to execute.
	ShellCommand struct {
		Command string
	}

	// CredentialScope declares credentials that must be made available to
	// the steps that follow. It runs nothing by itself.
	CredentialScope struct {
		IDs []CredentialRef
	}

	// EmbedDirective asks for an external generator to be run at resolution
	// time. It never survives resolution.
	EmbedDirective struct {
		Command string
	}

	// CredentialRef names a credential. Resolving it to a secret is the
	// job of the credential store, not of this package.
	CredentialRef struct {
		ID string `json:"id"`
	}

	// Variant is a named unit of work within a phase.
	Variant struct {
		Name  string
		Steps []Step
		// RequiredCredentials concatenates the IDs of every CredentialScope
		// step in step order. Duplicates are kept.
		RequiredCredentials []CredentialRef
		// Failed marks the synthetic variant left behind by a failed embed.
		Failed bool
	}

	// Phase is an ordered set of variants.
	Phase struct {
		Name     string
		Variants *OrderedMap[*Variant]
	}

	// Pipeline is the resolved model: an ordered set of phases.
	Pipeline struct {
		Phases *OrderedMap[*Phase]
	}
)

// Kind implements Step.
func (ShellCommand) Kind() StepKind { return StepShell }

// Kind implements Step.
func (CredentialScope) Kind() StepKind { return StepCredentials }

// Kind implements Step.
func (EmbedDirective) Kind() StepKind { return StepEmbed }

func (ShellCommand) isStep()    {}
func (CredentialScope) isStep() {}
func (EmbedDirective) isStep()  {}

// MarshalJSON renders the step the way it is declared: {"sh": "..."}.
func (s ShellCommand) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{string(StepShell): s.Command})
}

// MarshalJSON renders the step as {"with-credentials": [{"id": "..."}]}.
func (s CredentialScope) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]CredentialRef{string(StepCredentials): s.IDs})
}

// MarshalJSON renders the directive as {"embed": {"cmd": "..."}}.
func (s EmbedDirective) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]map[string]string{string(StepEmbed): {"cmd": s.Command}})
}

// NewPipeline creates an empty Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{Phases: NewOrderedMap[*Phase]()}
}

// NewPhase creates an empty Phase.
func NewPhase(name string) *Phase {
	return &Phase{Name: name, Variants: NewOrderedMap[*Variant]()}
}

// NewVariant creates a Variant from its steps and derives its required
// credentials.
func NewVariant(name string, steps []Step) *Variant {
	v := &Variant{Name: name, Steps: steps}
	for _, step := range steps {
		if scope, ok := step.(CredentialScope); ok {
			v.RequiredCredentials = append(v.RequiredCredentials, scope.IDs...)
		}
	}
	return v
}

// newFailedVariant creates the marker left behind by a failed embed.
func newFailedVariant() *Variant {
	return &Variant{Name: ErrorVariantName, Failed: true}
}

// Phase returns the named phase.
func (p *Pipeline) Phase(name string) (*Phase, bool) {
	return p.Phases.Get(name)
}

// Variant returns the named variant of the named phase.
func (p *Pipeline) Variant(phase, variant string) (*Variant, bool) {
	ph, ok := p.Phases.Get(phase)
	if !ok {
		return nil, false
	}
	return ph.Variants.Get(variant)
}

// FailedVariants lists "phase/variant" for every variant marked as failed,
// in pipeline order.
func (p *Pipeline) FailedVariants() []string {
	var failed []string
	for phaseName, phase := range p.Phases.All() {
		for variantName, v := range phase.Variants.All() {
			if v.Failed {
				failed = append(failed, phaseName+"/"+variantName)
			}
		}
	}
	return failed
}
