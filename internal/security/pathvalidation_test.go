package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in dir", filepath.Join(base, "template.csv"), false},
		{"nested new file", filepath.Join(base, "a", "b", "c.csv"), false},
		{"dir itself", base, false},
		{"parent escape", filepath.Join(base, "..", "evil.csv"), true},
		{"absolute elsewhere", "/etc/passwd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, base)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathWithinDirectory(%q) err = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePathWithinDirectory_SymlinkParent(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(base, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := ValidatePathWithinDirectory(filepath.Join(link, "new.csv"), base); err == nil {
		t.Error("expected symlinked parent pointing outside to be rejected")
	}
}

func TestValidateOutputPath(t *testing.T) {
	if err := ValidateOutputPath(filepath.Join(os.TempDir(), "covdash-out.csv")); err != nil {
		t.Errorf("temp dir path rejected: %v", err)
	}
	if err := ValidateOutputPath("template.csv"); err != nil {
		t.Errorf("relative path in cwd rejected: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"coverage_template.csv", "coverage_template.csv"},
		{"../../etc/passwd", "etc_passwd"},
		{"cov template (1).csv", "cov_template_1_.csv"},
		{"", "unknown"},
		{"...", "unknown"},
		{"a\x00b", "a_b"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
