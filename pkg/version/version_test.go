package version

import "testing"

func TestString(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	defer func() { Version = old }()

	if got, want := String(), "agentcore v1.2.3 (commit none, built unknown)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
