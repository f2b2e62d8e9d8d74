// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// EmbedTag marks a phase or variant whose content is produced by a generator.
	EmbedTag = "!embed"

	phasesKey  = "phases"
	embedCmd   = "cmd"
	credIDKey  = "id"
	strTag     = "!!str"
	nullTag    = "!!null"
	pathRootTL = "<document>"
)

type (
	// Document is a pipeline as declared, before embed resolution.
	Document struct {
		Phases []DeclaredPhase
	}

	// DeclaredPhase is either a list of variants or a single embed directive
	// standing in for all of them.
	DeclaredPhase struct {
		Name     string
		Embed    *EmbedDirective
		Variants []DeclaredVariant
		Line     int
	}

	// DeclaredVariant is either a list of steps or an embed directive that
	// expands into zero or more sibling variants.
	DeclaredVariant struct {
		Name  string
		Embed *EmbedDirective
		Steps []Step
		Line  int
	}
)

// ParseFile reads and parses a pipeline document from disk.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline document: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML pipeline document. Every step is normalized into its
// canonical Step; any declaration outside the grammar yields a *ShapeError.
// Embed directives are recorded but not resolved.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse pipeline document: %w", err)
	}

	doc := &Document{}
	if root.Kind == 0 || len(root.Content) == 0 {
		return doc, nil
	}

	top := deref(root.Content[0])
	if isNull(top) {
		return doc, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, shapeErr(pathRootTL, top, "document must be a mapping, got %s", kindName(top))
	}

	phases := lookup(top, phasesKey)
	if phases == nil || isNull(phases) {
		return doc, nil
	}
	if phases.Kind != yaml.MappingNode {
		return nil, shapeErr(phasesKey, phases, "phases must be a mapping of phase names, got %s", kindName(phases))
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(phases.Content); i += 2 {
		name, err := keyName(phasesKey, phases.Content[i])
		if err != nil {
			return nil, err
		}
		path := phasesKey + "." + name
		if seen[name] {
			return nil, shapeErr(path, phases.Content[i], "duplicate phase %q", name)
		}
		seen[name] = true

		phase, err := parsePhase(path, name, deref(phases.Content[i+1]))
		if err != nil {
			return nil, err
		}
		phase.Line = phases.Content[i].Line
		doc.Phases = append(doc.Phases, phase)
	}

	return doc, nil
}

func parsePhase(path, name string, node *yaml.Node) (DeclaredPhase, error) {
	phase := DeclaredPhase{Name: name}

	switch {
	case node.Tag == EmbedTag:
		embed, err := parseEmbed(path, node)
		if err != nil {
			return phase, err
		}
		phase.Embed = &embed
		return phase, nil
	case isNull(node):
		return phase, nil
	case node.Kind != yaml.MappingNode:
		return phase, shapeErr(path, node, "phase must be a mapping of variants or an %s directive, got %s", EmbedTag, kindName(node))
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		variantName, err := keyName(path, node.Content[i])
		if err != nil {
			return phase, err
		}
		variantPath := path + "." + variantName
		if seen[variantName] {
			return phase, shapeErr(variantPath, node.Content[i], "duplicate variant %q", variantName)
		}
		seen[variantName] = true
		if variantName == ErrorVariantName {
			return phase, shapeErr(variantPath, node.Content[i], "variant name %q is reserved for failed embeds", ErrorVariantName)
		}

		variant, err := parseVariant(variantPath, variantName, deref(node.Content[i+1]))
		if err != nil {
			return phase, err
		}
		variant.Line = node.Content[i].Line
		phase.Variants = append(phase.Variants, variant)
	}

	return phase, nil
}

func parseVariant(path, name string, node *yaml.Node) (DeclaredVariant, error) {
	variant := DeclaredVariant{Name: name}

	if node.Tag == EmbedTag {
		embed, err := parseEmbed(path, node)
		if err != nil {
			return variant, err
		}
		variant.Embed = &embed
		return variant, nil
	}

	steps, err := parseSteps(path, node)
	if err != nil {
		return variant, err
	}
	variant.Steps = steps
	return variant, nil
}

// parseSteps normalizes a step list. Embed directives are only meaningful
// in place of a whole phase or variant, so they are rejected here.
func parseSteps(path string, node *yaml.Node) ([]Step, error) {
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, shapeErr(path, node, "variant must be a list of steps, got %s", kindName(node))
	}

	steps := make([]Step, 0, len(node.Content))
	for i, item := range node.Content {
		stepPath := fmt.Sprintf("%s[%d]", path, i)
		step, err := normalizeStep(stepPath, deref(item))
		if err != nil {
			return nil, err
		}
		if step.Kind() == StepEmbed {
			return nil, shapeErr(stepPath, item, "an %s directive must replace a whole phase or variant, not a single step", EmbedTag)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// normalizeStep maps one declared step onto its canonical Step.
func normalizeStep(path string, node *yaml.Node) (Step, error) {
	switch {
	case node.Tag == EmbedTag:
		return parseEmbed(path, node)
	case node.Kind == yaml.ScalarNode:
		return parseShellString(path, node)
	case node.Kind == yaml.MappingNode:
		return parseStepMapping(path, node)
	default:
		return nil, shapeErr(path, node, "step must be a string or a mapping, got %s", kindName(node))
	}
}

func parseShellString(path string, node *yaml.Node) (Step, error) {
	if node.ShortTag() != strTag {
		return nil, shapeErr(path, node, "step must be a command string, got %s", kindName(node))
	}
	return ShellCommand{Command: node.Value}, nil
}

func parseStepMapping(path string, node *yaml.Node) (Step, error) {
	if len(node.Content) != 2 {
		return nil, shapeErr(path, node, "step mapping must have exactly one key, got %d", len(node.Content)/2)
	}

	key, err := keyName(path, node.Content[0])
	if err != nil {
		return nil, err
	}
	value := deref(node.Content[1])

	switch StepKind(key) {
	case StepShell:
		return parseShMapping(path+"."+key, value)
	case StepCredentials:
		return parseCredentials(path+"."+key, value)
	default:
		return nil, shapeErr(path, node.Content[0], "unknown step key %q", key)
	}
}

func parseShMapping(path string, node *yaml.Node) (Step, error) {
	if node.Kind != yaml.ScalarNode || node.ShortTag() != strTag {
		return nil, shapeErr(path, node, "sh must be a command string, got %s", kindName(node))
	}
	return ShellCommand{Command: node.Value}, nil
}

func parseCredentials(path string, node *yaml.Node) (Step, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() != strTag || node.Value == "" {
			return nil, shapeErr(path, node, "credential id must be a non-empty string")
		}
		return CredentialScope{IDs: []CredentialRef{{ID: node.Value}}}, nil
	case yaml.MappingNode:
		ref, err := parseCredentialMapping(path, node)
		if err != nil {
			return nil, err
		}
		return CredentialScope{IDs: []CredentialRef{ref}}, nil
	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			return nil, shapeErr(path, node, "credential list must not be empty")
		}
		refs := make([]CredentialRef, 0, len(node.Content))
		for i, item := range node.Content {
			item = deref(item)
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if item.Kind != yaml.MappingNode {
				return nil, shapeErr(itemPath, item, "credential list entries must be mappings with an id, got %s", kindName(item))
			}
			ref, err := parseCredentialMapping(itemPath, item)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
		return CredentialScope{IDs: refs}, nil
	default:
		return nil, shapeErr(path, node, "with-credentials must be an id, a mapping or a list of mappings, got %s", kindName(node))
	}
}

func parseCredentialMapping(path string, node *yaml.Node) (CredentialRef, error) {
	id := lookup(node, credIDKey)
	if id == nil || id.Kind != yaml.ScalarNode || id.ShortTag() != strTag || id.Value == "" {
		return CredentialRef{}, shapeErr(path, node, "credential mapping must have a non-empty string id")
	}
	return CredentialRef{ID: id.Value}, nil
}

func parseEmbed(path string, node *yaml.Node) (EmbedDirective, error) {
	if node.Kind != yaml.MappingNode {
		return EmbedDirective{}, shapeErr(path, node, "%s directive must be a mapping with a %s field", EmbedTag, embedCmd)
	}

	var cmd string
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, err := keyName(path, node.Content[i])
		if err != nil {
			return EmbedDirective{}, err
		}
		if key != embedCmd {
			return EmbedDirective{}, shapeErr(path, node.Content[i], "unknown key %q in %s directive", key, EmbedTag)
		}
		value := deref(node.Content[i+1])
		if value.Kind != yaml.ScalarNode || value.ShortTag() != strTag || value.Value == "" {
			return EmbedDirective{}, shapeErr(path+"."+embedCmd, value, "%s must be a non-empty command string", embedCmd)
		}
		cmd = value.Value
	}
	if cmd == "" {
		return EmbedDirective{}, shapeErr(path, node, "%s directive is missing its %s field", EmbedTag, embedCmd)
	}

	return EmbedDirective{Command: cmd}, nil
}

// parseGenerated parses generator output: a mapping of variant names to
// step lists, in the order the generator printed them.
func parseGenerated(output string) ([]DeclaredVariant, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(output), &root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGeneratorOutput, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: no document", ErrInvalidGeneratorOutput)
	}

	top := deref(root.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping of variant names to steps, got %s", ErrInvalidGeneratorOutput, kindName(top))
	}

	const path = "<generated>"
	seen := make(map[string]bool)
	variants := make([]DeclaredVariant, 0, len(top.Content)/2)
	for i := 0; i+1 < len(top.Content); i += 2 {
		name, err := keyName(path, top.Content[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidGeneratorOutput, err)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate variant %q", ErrInvalidGeneratorOutput, name)
		}
		seen[name] = true
		if name == ErrorVariantName {
			return nil, fmt.Errorf("%w: variant name %q is reserved", ErrInvalidGeneratorOutput, name)
		}

		value := deref(top.Content[i+1])
		if value.Tag == EmbedTag {
			return nil, fmt.Errorf("%w: variant %q: generators cannot emit %s directives", ErrInvalidGeneratorOutput, name, EmbedTag)
		}
		steps, err := parseSteps(path+"."+name, value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidGeneratorOutput, err)
		}
		variants = append(variants, DeclaredVariant{Name: name, Steps: steps, Line: top.Content[i].Line})
	}
	return variants, nil
}

func keyName(path string, node *yaml.Node) (string, error) {
	node = deref(node)
	if node.Kind != yaml.ScalarNode || isNull(node) {
		return "", shapeErr(path, node, "keys must be strings, got %s", kindName(node))
	}
	return node.Value, nil
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if deref(mapping.Content[i]).Value == key {
			return deref(mapping.Content[i+1])
		}
	}
	return nil
}

func deref(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == nullTag
}

func kindName(node *yaml.Node) string {
	switch node.Kind {
	case yaml.MappingNode:
		return "a mapping"
	case yaml.SequenceNode:
		return "a list"
	case yaml.ScalarNode:
		if isNull(node) {
			return "null"
		}
		return fmt.Sprintf("a scalar (%s)", node.ShortTag())
	default:
		return "an unsupported node"
	}
}

func shapeErr(path string, node *yaml.Node, format string, args ...any) *ShapeError {
	line := 0
	if node != nil {
		line = node.Line
	}
	return &ShapeError{Path: path, Line: line, Reason: fmt.Sprintf(format, args...)}
}
