// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
)

// Catalog entries. The zero Id means "no guidance".
const (
	PipelineNotFoundId Id = iota + 1
	PipelineParseErrorId
	PhaseNotFoundId
	GeneratorFailedId
	StepFailedId
	ConfigLoadFailedId
	PermissionDeniedId
)

type (
	// Id identifies a catalog entry.
	Id int

	MarkdownMsg string

	// Issue is a catalog entry: Markdown guidance for one class of failure.
	Issue struct {
		id    Id
		mdMsg MarkdownMsg
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Render renders the issue as terminal markdown using the given glamour
// style ("dark", "light", "notty", ...).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(string(i.mdMsg), stylePath)
}

var (
	render = glamour.Render

	pipelineNotFoundIssue = &Issue{
		id: PipelineNotFoundId,
		mdMsg: `
# No pipeline file found!

phaser reads its pipeline from ` + "`phaser-ci-config.yaml`" + ` in the current directory
unless told otherwise.

## Things you can try:
- Run phaser from the repository root
- Point at the file explicitly:
~~~
$ phaser --config-file path/to/phaser-ci-config.yaml getinfo
~~~
- Set ` + "`pipeline_file`" + ` in your phaser configuration`,
	}

	pipelineParseErrorIssue = &Issue{
		id: PipelineParseErrorId,
		mdMsg: `
# The pipeline file is not valid!

Every phase maps variant names to lists of steps. A step is one of:

~~~yaml
phases:
  build:
    linux:
      - ./build.sh linux           # plain command
      - sh: ./build.sh --release   # structured command
      - with-credentials: deploy-key
      - with-credentials:
          - id: registry
          - id: signing
  test: !embed
    cmd: ./generate-variants.py
~~~

## Things you can try:
- Check the location reported above
- Make sure every step mapping has exactly one key
- Use !embed only in place of a whole phase or variant`,
	}

	phaseNotFoundIssue = &Issue{
		id: PhaseNotFoundId,
		mdMsg: `
# Phase or variant not found!

The requested phase or variant does not exist in the resolved pipeline.

## Things you can try:
- List what is available:
~~~
$ phaser getinfo
~~~
- Remember that variants produced by !embed generators only exist after resolution`,
	}

	generatorFailedIssue = &Issue{
		id: GeneratorFailedId,
		mdMsg: `
# An embed generator failed!

A phase contains an ` + "`error-variant`" + `, which marks an !embed directive whose
generator could not be run or printed something that is not a mapping of
variant names to steps.

## Things you can try:
- Rerun with ` + "`--log-level debug`" + ` to see the generator command and its stderr
- Run the generator by hand from the directory that holds the pipeline file
- Make sure it prints YAML like:
~~~yaml
my-variant:
  - echo hello
~~~`,
	}

	stepFailedIssue = &Issue{
		id: StepFailedId,
		mdMsg: `
# A pipeline step failed!

## Things you can try:
- Check the step output above
- Preview the commands without running them:
~~~
$ phaser build --dry-run
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Your phaser configuration file could not be loaded.

## Things you can try:
- Check the CUE syntax of the file
- Print the effective configuration:
~~~
$ phaser config show
~~~
- Remove the file to fall back to defaults`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

## Common causes:
- A generator script is not executable
- The pipeline file is not readable

## Things you can try:
~~~
$ chmod +x ./generate-variants.py
~~~`,
	}

	issues = map[Id]*Issue{
		pipelineNotFoundIssue.Id():   pipelineNotFoundIssue,
		pipelineParseErrorIssue.Id(): pipelineParseErrorIssue,
		phaseNotFoundIssue.Id():      phaseNotFoundIssue,
		generatorFailedIssue.Id():    generatorFailedIssue,
		stepFailedIssue.Id():         stepFailedIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		permissionDeniedIssue.Id():   permissionDeniedIssue,
	}
)

// Get returns the catalog entry for id, or nil.
func Get(id Id) *Issue {
	return issues[id]
}
