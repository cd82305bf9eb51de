package policyopa

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"workseald/internal/domain"
)

func TestEngineAllowsBaselineInput(t *testing.T) {
	engine := newEngine(t)
	input := domain.PolicyInput{CloudRegion: "us-west-2", WorkloadType: "web-application"}

	first, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate first: %v", err)
	}
	second, err := engine.Evaluate(context.Background(), input)
	if err != nil {
		t.Fatalf("evaluate second: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected deterministic policy evaluation")
	}
	if !first.Allow {
		t.Fatalf("expected allow for baseline input, got %+v", first)
	}
	if len(first.Deny) != 0 {
		t.Fatalf("expected empty deny list, got %+v", first.Deny)
	}
}

func TestEnginePolicyDenies(t *testing.T) {
	engine := newEngine(t)

	tests := []struct {
		name  string
		input domain.PolicyInput
		want  []string
	}{
		{
			name:  "region missing",
			input: domain.PolicyInput{WorkloadType: "web-application"},
			want:  []string{"REGION_MISSING"},
		},
		{
			name:  "workload type missing",
			input: domain.PolicyInput{CloudRegion: "us-west-2"},
			want:  []string{"WORKLOAD_TYPE_MISSING"},
		},
		{
			name:  "restricted partition",
			input: domain.PolicyInput{CloudRegion: "us-gov-east-1", WorkloadType: "web-application"},
			want:  []string{"REGION_NOT_ALLOWED"},
		},
		{
			name:  "everything wrong",
			input: domain.PolicyInput{},
			want:  []string{"REGION_MISSING", "WORKLOAD_TYPE_MISSING"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := engine.Evaluate(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if out.Allow {
				t.Fatal("expected deny")
			}
			got := make([]string, 0, len(out.Deny))
			for _, d := range out.Deny {
				got = append(got, d.Code)
			}
			if !reflect.DeepEqual(tt.want, got) {
				t.Fatalf("deny codes: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEngineRejectsTimeBuiltin(t *testing.T) {
	rejectBuiltin(t, "time.now_ns()")
}

func TestEngineRejectsHttpSend(t *testing.T) {
	rejectBuiltin(t, "http.send({\"method\": \"get\", \"url\": \"https://example.com\"})")
}

func TestEngineRejectsRand(t *testing.T) {
	rejectBuiltin(t, "rand.intn(10)")
}

func rejectBuiltin(t *testing.T, expr string) {
	t.Helper()
	dir := t.TempDir()
	regoContent := `package workseald.seal
result := {"allow": true, "deny": []} {
  ` + expr + `
}`
	if err := os.WriteFile(filepath.Join(dir, "policy.rego"), []byte(regoContent), 0o644); err != nil {
		t.Fatalf("write rego: %v", err)
	}

	if _, err := NewEngineFromBundlePath(context.Background(), dir); err == nil {
		t.Fatal("expected builtin to be rejected")
	}
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	path := filepath.Join("..", "..", "policy", "bundles", "reference_v0")
	engine, err := NewEngineFromBundlePath(context.Background(), path)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}
