// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

type (
	// Generator runs the command of an embed directive and returns what it
	// printed on standard output.
	Generator interface {
		Generate(ctx context.Context, command string) (string, error)
	}

	// GeneratorFunc adapts a function to the Generator interface.
	GeneratorFunc func(ctx context.Context, command string) (string, error)

	// ResolveOption configures Resolve.
	ResolveOption func(*resolver)

	resolver struct {
		gen    Generator
		logger *log.Logger
	}
)

// errNoGenerator is reported (as a failed embed) when a document contains
// embed directives but no Generator was supplied.
var errNoGenerator = errors.New("no generator configured")

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, command string) (string, error) {
	return f(ctx, command)
}

// WithLogger sets the logger used to report failed embeds.
func WithLogger(logger *log.Logger) ResolveOption {
	return func(r *resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Load parses data and resolves it in one call.
func Load(ctx context.Context, data []byte, gen Generator, opts ...ResolveOption) (*Pipeline, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Resolve(ctx, doc, gen, opts...)
}

// Resolve turns a declared document into a Pipeline with every embed
// directive replaced by the variants its generator produced.
//
// A failing generator never fails resolution: the directive is replaced by
// a single variant named ErrorVariantName with Failed set. The only errors
// returned are from ctx.
func Resolve(ctx context.Context, doc *Document, gen Generator, opts ...ResolveOption) (*Pipeline, error) {
	r := &resolver{gen: gen, logger: log.Default()}
	for _, opt := range opts {
		opt(r)
	}

	p := NewPipeline()
	if doc == nil {
		return p, nil
	}

	for _, declared := range doc.Phases {
		phase, err := r.resolvePhase(ctx, declared)
		if err != nil {
			return nil, err
		}
		p.Phases.Set(declared.Name, phase)
	}
	return p, nil
}

func (r *resolver) resolvePhase(ctx context.Context, declared DeclaredPhase) (*Phase, error) {
	phase := NewPhase(declared.Name)

	if declared.Embed != nil {
		if err := r.splice(ctx, phase, declared.Name, *declared.Embed, nil); err != nil {
			return nil, err
		}
		return phase, nil
	}

	static := make(map[string]bool, len(declared.Variants))
	for _, v := range declared.Variants {
		if v.Embed == nil {
			static[v.Name] = true
		}
	}

	for _, v := range declared.Variants {
		if v.Embed == nil {
			phase.Variants.Set(v.Name, NewVariant(v.Name, v.Steps))
			continue
		}
		if err := r.splice(ctx, phase, declared.Name+"/"+v.Name, *v.Embed, static); err != nil {
			return nil, err
		}
	}
	return phase, nil
}

// splice runs the directive's generator and appends the variants it
// produced to phase. On any generator failure it appends the error marker
// instead; a phase carries at most one marker.
func (r *resolver) splice(ctx context.Context, phase *Phase, at string, embed EmbedDirective, static map[string]bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	variants, err := r.generate(ctx, embed)
	if err == nil {
		err = checkCollisions(phase, variants, static)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.logger.Warn("embed generator failed", "at", at, "cmd", embed.Command, "err", err)
		if !phase.Variants.Has(ErrorVariantName) {
			phase.Variants.Set(ErrorVariantName, newFailedVariant())
		}
		return nil
	}

	for _, v := range variants {
		phase.Variants.Set(v.Name, NewVariant(v.Name, v.Steps))
	}
	r.logger.Debug("embed resolved", "at", at, "variants", len(variants))
	return nil
}

func (r *resolver) generate(ctx context.Context, embed EmbedDirective) ([]DeclaredVariant, error) {
	if r.gen == nil {
		return nil, errNoGenerator
	}
	output, err := r.gen.Generate(ctx, embed.Command)
	if err != nil {
		return nil, err
	}
	return parseGenerated(output)
}

func checkCollisions(phase *Phase, variants []DeclaredVariant, static map[string]bool) error {
	for _, v := range variants {
		if static[v.Name] || phase.Variants.Has(v.Name) {
			return fmt.Errorf("%w: variant %q already exists in the phase", ErrInvalidGeneratorOutput, v.Name)
		}
	}
	return nil
}
