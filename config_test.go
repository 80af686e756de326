package restyle

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleConfig = `
lines:
  - name: mainline
    marker: 4e3915789cbbdf31daee75b053cc88b5f486086e
    base: development
  - name: maintenance-2.28
    marker: 0f064f9c95c92b166e148f6fdac0bda3e8a7dcaf
    base: mbedtls-2.28
tool:
  command: uncrustify
  args: [--no-backup]
  version_args: [--version]
  version_pattern: "0\\.75\\.1"
  max_passes: 2
filter:
  patterns: ["*.c", "*.h"]
  excluded_roots: [3rdparty]
  generated_files: [library/version_features.c]
`

func TestParseConfigYAML(t *testing.T) {
	got, err := ParseConfigYAML([]byte(sampleConfig))
	if err != nil {
		t.Fatal(err)
	}

	want := &Config{
		Lines: []LineConfig{
			{Name: "mainline", Marker: "4e3915789cbbdf31daee75b053cc88b5f486086e", Base: "development"},
			{Name: "maintenance-2.28", Marker: "0f064f9c95c92b166e148f6fdac0bda3e8a7dcaf", Base: "mbedtls-2.28"},
		},
		Tool: ToolConfig{
			Command:        "uncrustify",
			Args:           []string{"--no-backup"},
			VersionArgs:    []string{"--version"},
			VersionPattern: `0\.75\.1`,
			MaxPasses:      2,
		},
		Filter: PathFilter{
			Patterns:       []string{"*.c", "*.h"},
			ExcludedRoots:  []string{"3rdparty"},
			GeneratedFiles: []string{"library/version_features.c"},
		},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	if err := got.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := (&Config{}).Validate(); !errors.Is(err, ErrEmptyTransformTool) {
		t.Fatalf("empty tool err = %v, want %v", err, ErrEmptyTransformTool)
	}

	c := DefaultConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	c.Lines = []LineConfig{{Name: "mainline"}}
	if err := c.Validate(); err == nil {
		t.Fatal("line without marker and base should fail validation")
	}

	c.Lines = []LineConfig{
		{Name: "mainline", Marker: "a", Base: "b"},
		{Name: "mainline", Marker: "c", Base: "d"},
	}
	if err := c.Validate(); !errors.Is(err, errDuplicateLineName) {
		t.Fatalf("duplicate line err = %v, want %v", err, errDuplicateLineName)
	}
}
