// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

var allIds = []Id{
	PipelineNotFoundId,
	PipelineParseErrorId,
	PhaseNotFoundId,
	GeneratorFailedId,
	StepFailedId,
	ConfigLoadFailedId,
	PermissionDeniedId,
}

func stubRender(t *testing.T) {
	t.Helper()
	original := render
	t.Cleanup(func() { render = original })
	render = func(in string, _ string) (string, error) {
		return in, nil
	}
}

func TestId_Constants(t *testing.T) {
	seen := make(map[Id]bool)
	for _, id := range allIds {
		if seen[id] {
			t.Errorf("duplicate ID: %d", id)
		}
		seen[id] = true
	}

	if PipelineNotFoundId != 1 {
		t.Errorf("PipelineNotFoundId = %d, want 1", PipelineNotFoundId)
	}
}

func TestGet(t *testing.T) {
	tests := []struct {
		id       Id
		wantNil  bool
		contains string
	}{
		{PipelineNotFoundId, false, "No pipeline file found"},
		{PipelineParseErrorId, false, "with-credentials"},
		{PhaseNotFoundId, false, "phaser getinfo"},
		{GeneratorFailedId, false, "error-variant"},
		{StepFailedId, false, "--dry-run"},
		{ConfigLoadFailedId, false, "Failed to load configuration"},
		{PermissionDeniedId, false, "Permission denied"},
		{Id(9999), true, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.contains, func(t *testing.T) {
			issue := Get(tt.id)

			if tt.wantNil {
				if issue != nil {
					t.Errorf("Get(%d) should return nil", tt.id)
				}
				return
			}

			if issue == nil {
				t.Fatalf("Get(%d) returned nil", tt.id)
			}
			if issue.Id() != tt.id {
				t.Errorf("Get(%d).Id() = %d", tt.id, issue.Id())
			}
			if !strings.Contains(string(issue.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%d).MarkdownMsg() should contain %q", tt.id, tt.contains)
			}
		})
	}
}

func TestCatalog_Complete(t *testing.T) {
	if len(issues) != len(allIds) {
		t.Errorf("catalog has %d entries, want %d", len(issues), len(allIds))
	}
	for _, id := range allIds {
		if Get(id) == nil || Get(id).MarkdownMsg() == "" {
			t.Errorf("issue %d has no guidance", id)
		}
	}
}

func TestIssue_Render(t *testing.T) {
	stubRender(t)

	testIssue := &Issue{id: Id(9998), mdMsg: "# Test Issue\n\nBody."}

	rendered, err := testIssue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}
	if rendered != "# Test Issue\n\nBody." {
		t.Errorf("Render() = %q, want the markdown message", rendered)
	}
}

func TestAllIssuesRenderWithGlamour(t *testing.T) {
	for _, id := range allIds {
		rendered, err := Get(id).Render("notty")
		if err != nil {
			t.Errorf("Issue %d failed to render: %v", id, err)
		}
		if strings.TrimSpace(rendered) == "" {
			t.Errorf("Issue %d rendered to empty string", id)
		}
	}
}
