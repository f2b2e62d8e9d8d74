// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"encoding/json"
	"fmt"
)

type (
	// InfoOptions narrows and enriches the introspection view.
	InfoOptions struct {
		// Phase limits the view to one phase.
		Phase string
		// Variant limits the view to one variant of Phase.
		Variant string
		// WithSteps includes each variant's canonical steps.
		WithSteps bool
	}

	// VariantInfo is the introspection view of one variant. Failed variants
	// have neither field set and encode as {}.
	VariantInfo struct {
		WithCredentials []CredentialRef `json:"with-credentials,omitempty"`
		Steps           []Step          `json:"steps,omitempty"`
	}

	// PhaseInfo maps variant names to their view, in pipeline order.
	PhaseInfo = OrderedMap[VariantInfo]

	// Info maps phase names to their view, in pipeline order.
	Info = OrderedMap[*PhaseInfo]
)

// Info returns the introspection view of the whole pipeline.
func (p *Pipeline) Info(withSteps bool) *Info {
	info := NewOrderedMap[*PhaseInfo]()
	for name, phase := range p.Phases.All() {
		info.Set(name, phase.Info(withSteps))
	}
	return info
}

// Info returns the introspection view of the phase.
func (ph *Phase) Info(withSteps bool) *PhaseInfo {
	info := NewOrderedMap[VariantInfo]()
	for name, v := range ph.Variants.All() {
		info.Set(name, v.Info(withSteps))
	}
	return info
}

// Info returns the introspection view of the variant.
func (v *Variant) Info(withSteps bool) VariantInfo {
	if v.Failed {
		return VariantInfo{}
	}
	vi := VariantInfo{WithCredentials: v.RequiredCredentials}
	if withSteps {
		vi.Steps = v.Steps
	}
	return vi
}

// Describe returns the view selected by opts: the whole pipeline, one phase
// or one variant. Naming a variant without a phase is an error.
func (p *Pipeline) Describe(opts InfoOptions) (any, error) {
	if opts.Phase == "" {
		if opts.Variant != "" {
			return nil, fmt.Errorf("%w %q: a phase must be selected too", ErrUnknownVariant, opts.Variant)
		}
		return p.Info(opts.WithSteps), nil
	}

	phase, ok := p.Phase(opts.Phase)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPhase, opts.Phase)
	}
	if opts.Variant == "" {
		return phase.Info(opts.WithSteps), nil
	}

	v, ok := phase.Variants.Get(opts.Variant)
	if !ok {
		return nil, fmt.Errorf("%w %q in phase %q", ErrUnknownVariant, opts.Variant, opts.Phase)
	}
	return v.Info(opts.WithSteps), nil
}

// MarshalIndent encodes a view returned by Describe or Info as indented
// JSON, preserving pipeline order.
func MarshalIndent(view any) ([]byte, error) {
	return json.MarshalIndent(view, "", "  ")
}
