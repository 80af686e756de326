package restyle

import "testing"

func TestParseGitVersion(t *testing.T) {
	cases := []struct {
		out     string
		major   int
		minor   int
		wantErr bool
	}{
		{out: "git version 2.39.2", major: 2, minor: 39},
		{out: "git version 2.19.0.rc1", major: 2, minor: 19},
		{out: "git version 2.45.1 (Apple Git-140)", major: 2, minor: 45},
		{out: "not a version", wantErr: true},
	}

	for _, tc := range cases {
		major, minor, err := parseGitVersion(tc.out)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseGitVersion(%q) expected error", tc.out)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseGitVersion(%q): %v", tc.out, err)
			continue
		}
		if major != tc.major || minor != tc.minor {
			t.Errorf("parseGitVersion(%q) = %d.%d, want %d.%d", tc.out, major, minor, tc.major, tc.minor)
		}
	}
}
