// SPDX-License-Identifier: MPL-2.0

// Package pipeline parses declarative pipeline documents and resolves them
// into an ordered, embed-free model.
//
// A document lists phases, each phase lists variants, and each variant lists
// steps. Steps come in a small closed set of shapes (see Step). A phase or a
// variant may instead be an !embed directive, which runs an external
// generator and splices the variants it prints in place of the directive.
// Generator failures never abort resolution; they leave an "error-variant"
// marker in the affected phase instead.
//
// Declaration order is preserved everywhere, including in the JSON produced
// for introspection.
package pipeline
