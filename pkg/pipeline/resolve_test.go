// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

// fakeGenerator answers embed commands from a table. Unknown commands fail
// the way a missing executable would.
type fakeGenerator struct {
	outputs map[string]string
	calls   []string
}

func (g *fakeGenerator) Generate(_ context.Context, command string) (string, error) {
	g.calls = append(g.calls, command)
	out, ok := g.outputs[command]
	if !ok {
		return "", errors.New("executable file not found in $PATH")
	}
	return out, nil
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{})
}

func load(t *testing.T, doc string, gen Generator) *Pipeline {
	t.Helper()
	p, err := Load(context.Background(), []byte(doc), gen, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return p
}

func variantNames(t *testing.T, p *Pipeline, phase string) []string {
	t.Helper()
	ph, ok := p.Phase(phase)
	if !ok {
		t.Fatalf("phase %q missing", phase)
	}
	return ph.Variants.Keys()
}

func assertVariants(t *testing.T, p *Pipeline, phase string, want ...string) {
	t.Helper()
	if got := variantNames(t, p, phase); !slices.Equal(got, want) {
		t.Errorf("variants of %s = %q, want %q", phase, got, want)
	}
}

func variant(t *testing.T, p *Pipeline, phase, name string) *Variant {
	t.Helper()
	v, ok := p.Variant(phase, name)
	if !ok {
		t.Fatalf("variant %s/%s missing", phase, name)
	}
	return v
}

func TestResolve_PreservesOrder(t *testing.T) {
	t.Parallel()

	p := load(t, `
phases:
  build:
    a:
      - ./build.sh a
    b:
      - sh: ./build.sh b
  test:
    a:
      - ./test.sh a
  upload:
    a:
      - ./upload.sh a
    b:
      - ./upload.sh b
`, nil)

	if got, want := p.Phases.Keys(), []string{"build", "test", "upload"}; !slices.Equal(got, want) {
		t.Errorf("phases = %q, want %q", got, want)
	}
	assertVariants(t, p, "build", "a", "b")
	assertVariants(t, p, "test", "a")
	assertVariants(t, p, "upload", "a", "b")
}

func TestResolve_ShapeInvariance(t *testing.T) {
	t.Parallel()

	bare := load(t, "phases:\n  build:\n    a:\n      - ./build.sh a\n", nil)
	mapped := load(t, "phases:\n  build:\n    a:\n      - sh: ./build.sh a\n", nil)

	bv := variant(t, bare, "build", "a")
	mv := variant(t, mapped, "build", "a")
	if !reflect.DeepEqual(bv.Steps, mv.Steps) {
		t.Errorf("bare steps %#v differ from mapped steps %#v", bv.Steps, mv.Steps)
	}
}

func TestResolve_CredentialAggregation(t *testing.T) {
	t.Parallel()

	p := load(t, `
phases:
  build:
    a:
      - with-credentials: t1
      - ./build.sh
      - with-credentials:
          id: s2
      - with-credentials:
          - id: t3
          - id: f4
      - with-credentials: t1
    b:
      - ./build.sh b
`, nil)

	want := []CredentialRef{{ID: "t1"}, {ID: "s2"}, {ID: "t3"}, {ID: "f4"}, {ID: "t1"}}
	if got := variant(t, p, "build", "a").RequiredCredentials; !slices.Equal(got, want) {
		t.Errorf("credentials of a = %v, want %v", got, want)
	}
	if got := variant(t, p, "build", "b").RequiredCredentials; len(got) != 0 {
		t.Errorf("credentials of b = %v, want none", got)
	}
}

func TestResolve_EmbedSuccess(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{outputs: map[string]string{
		"generate.py": "test-variant:\n  - echo generated\n",
	}}
	p := load(t, `
phases:
  test:
    test-variant-embed: !embed
      cmd: generate.py
`, gen)

	assertVariants(t, p, "test", "test-variant")
	v := variant(t, p, "test", "test-variant")
	if want := []Step{ShellCommand{Command: "echo generated"}}; !reflect.DeepEqual(v.Steps, want) {
		t.Errorf("steps = %#v, want %#v", v.Steps, want)
	}
	if v.Failed {
		t.Error("Failed = true, want false")
	}
	if want := []string{"generate.py"}; !slices.Equal(gen.calls, want) {
		t.Errorf("generator calls = %q, want %q", gen.calls, want)
	}
}

func TestResolve_EmbedSplicesAtDeclaredPosition(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{outputs: map[string]string{
		"gen": "z:\n  - echo z\ny:\n  - with-credentials: k\n",
	}}
	p := load(t, `
phases:
  build:
    first:
      - echo first
    generated: !embed
      cmd: gen
    last:
      - echo last
`, gen)

	assertVariants(t, p, "build", "first", "z", "y", "last")
	if got, want := variant(t, p, "build", "y").RequiredCredentials, []CredentialRef{{ID: "k"}}; !slices.Equal(got, want) {
		t.Errorf("credentials of y = %v, want %v", got, want)
	}
}

func TestResolve_PhaseLevelEmbed(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{outputs: map[string]string{
		"variants.sh": "x86:\n  - make x86\narm:\n  - make arm\n",
	}}
	p := load(t, `
phases:
  build: !embed
    cmd: variants.sh
  test:
    a:
      - make test
`, gen)

	if got, want := p.Phases.Keys(), []string{"build", "test"}; !slices.Equal(got, want) {
		t.Errorf("phases = %q, want %q", got, want)
	}
	assertVariants(t, p, "build", "x86", "arm")
}

func TestResolve_EmbedFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		output map[string]string
	}{
		{name: "missing generator", output: nil},
		{name: "yaml parse error", output: map[string]string{"gen": "a: [unterminated\n"}},
		{name: "non-mapping output", output: map[string]string{"gen": "- a\n- b\n"}},
		{name: "empty output", output: map[string]string{"gen": ""}},
		{name: "invalid generated step", output: map[string]string{"gen": "a:\n  - run: x\n"}},
		{name: "nested embed", output: map[string]string{"gen": "a: !embed\n  cmd: other\n"}},
		{name: "collides with static variant", output: map[string]string{"gen": "after:\n  - echo dup\n"}},
		{name: "reserved marker name", output: map[string]string{"gen": "error-variant:\n  - echo fake\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := &fakeGenerator{outputs: tt.output}
			p := load(t, `
phases:
  build:
    a:
      - make
  test:
    before:
      - echo before
    generated: !embed
      cmd: gen
    after:
      - echo after
  upload:
    a:
      - make upload
`, gen)

			assertVariants(t, p, "test", "before", ErrorVariantName, "after")
			v := variant(t, p, "test", ErrorVariantName)
			if !v.Failed {
				t.Error("marker Failed = false, want true")
			}
			if len(v.Steps) != 0 || len(v.RequiredCredentials) != 0 {
				t.Errorf("marker = %+v, want no steps or credentials", v)
			}

			assertVariants(t, p, "build", "a")
			assertVariants(t, p, "upload", "a")
			if got, want := p.FailedVariants(), []string{"test/" + ErrorVariantName}; !slices.Equal(got, want) {
				t.Errorf("FailedVariants() = %q, want %q", got, want)
			}
		})
	}
}

func TestResolve_MarkerSurvivesLaterEmbeds(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{outputs: map[string]string{
		"fake-marker": "error-variant:\n  - echo ok\nreal:\n  - echo real\n",
		"good":        "later:\n  - echo later\n",
	}}
	p := load(t, `
phases:
  test:
    broken: !embed
      cmd: missing
    fake: !embed
      cmd: fake-marker
    ok: !embed
      cmd: good
`, gen)

	assertVariants(t, p, "test", ErrorVariantName, "later")
	if !variant(t, p, "test", ErrorVariantName).Failed {
		t.Error("marker Failed = false, want true")
	}
	if got, want := p.FailedVariants(), []string{"test/" + ErrorVariantName}; !slices.Equal(got, want) {
		t.Errorf("FailedVariants() = %q, want %q", got, want)
	}
}

func TestResolve_DeclaredMarkerNameRejected(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), []byte(`
phases:
  test:
    gen: !embed
      cmd: missing
    error-variant:
      - echo static
`), &fakeGenerator{}, WithLogger(quietLogger()))
	if !errors.Is(err, ErrInvalidShape) {
		t.Errorf("Load() error = %v, want %v", err, ErrInvalidShape)
	}
}

func TestResolve_EmbedFailureIsLogged(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	_, err := Load(context.Background(),
		[]byte("phases:\n  test:\n    gen: !embed\n      cmd: missing-generator\n"),
		&fakeGenerator{}, WithLogger(log.New(&logs)))
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	for _, want := range []string{"embed generator failed", "missing-generator"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("logs %q should contain %q", logs.String(), want)
		}
	}
}

func TestResolve_OneMarkerPerPhase(t *testing.T) {
	t.Parallel()

	p := load(t, `
phases:
  test:
    one: !embed
      cmd: broken-one
    ok:
      - echo ok
    two: !embed
      cmd: broken-two
`, &fakeGenerator{})

	assertVariants(t, p, "test", ErrorVariantName, "ok")
}

func TestResolve_IndependentDirectives(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{outputs: map[string]string{
		"good": "generated:\n  - echo hi\n",
	}}
	p := load(t, `
phases:
  build:
    g: !embed
      cmd: good
  test:
    g: !embed
      cmd: bad
`, gen)

	assertVariants(t, p, "build", "generated")
	assertVariants(t, p, "test", ErrorVariantName)
	if want := []string{"good", "bad"}; !slices.Equal(gen.calls, want) {
		t.Errorf("generator calls = %q, want %q", gen.calls, want)
	}
}

func TestResolve_CollisionBetweenEmbeds(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{outputs: map[string]string{
		"first":  "same:\n  - echo 1\n",
		"second": "same:\n  - echo 2\n",
	}}
	p := load(t, `
phases:
  test:
    one: !embed
      cmd: first
    two: !embed
      cmd: second
`, gen)

	assertVariants(t, p, "test", "same", ErrorVariantName)
	if got, want := variant(t, p, "test", "same").Steps, []Step{ShellCommand{Command: "echo 1"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("steps = %#v, want %#v", got, want)
	}
}

func TestResolve_NoGenerator(t *testing.T) {
	t.Parallel()

	p := load(t, "phases:\n  test:\n    g: !embed\n      cmd: gen\n", nil)
	assertVariants(t, p, "test", ErrorVariantName)
}

func TestResolve_CanceledContext(t *testing.T) {
	t.Parallel()

	doc, err := Parse([]byte("phases:\n  test:\n    g: !embed\n      cmd: gen\n"))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Resolve(ctx, doc, &fakeGenerator{}, WithLogger(quietLogger())); !errors.Is(err, context.Canceled) {
		t.Errorf("Resolve() error = %v, want %v", err, context.Canceled)
	}
}

func TestResolve_ShapeErrorIsFatal(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), []byte("phases:\n  build:\n    a:\n      - with-credentials: []\n"), nil)
	if !errors.Is(err, ErrInvalidShape) {
		t.Errorf("Load() error = %v, want %v", err, ErrInvalidShape)
	}
}

func TestResolve_NilDocument(t *testing.T) {
	t.Parallel()

	p, err := Resolve(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}
	if p.Phases.Len() != 0 {
		t.Errorf("phases = %d, want 0", p.Phases.Len())
	}
}

func TestGeneratorFunc(t *testing.T) {
	t.Parallel()

	gen := GeneratorFunc(func(_ context.Context, command string) (string, error) {
		return "from-" + command + ":\n  - echo\n", nil
	})
	p := load(t, "phases:\n  test:\n    g: !embed\n      cmd: func\n", gen)
	assertVariants(t, p, "test", "from-func")
}
