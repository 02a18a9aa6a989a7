package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateDataPath(t *testing.T) {
	dataDir := t.TempDir()
	inside := filepath.Join(dataDir, "areas.shp")
	if err := os.WriteFile(inside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		dataDir string
		wantErr bool
	}{
		{"inside", inside, dataDir, false},
		{"inside not yet existing", filepath.Join(dataDir, "new.csv"), dataDir, false},
		{"nested", filepath.Join(dataDir, "sub", "file.nc"), dataDir, false},
		{"traversal", filepath.Join(dataDir, "..", "escape.shp"), dataDir, true},
		{"absolute outside", "/etc/passwd", dataDir, true},
		{"unrestricted", "/anywhere/at/all", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDataPath(tt.path, tt.dataDir)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDataPath(%q, %q) error = %v, wantErr %v",
					tt.path, tt.dataDir, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDataPathSymlinkEscape(t *testing.T) {
	dataDir := t.TempDir()
	outside := t.TempDir()
	target := filepath.Join(outside, "secret.nc")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dataDir, "link.nc")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if err := ValidateDataPath(link, dataDir); err == nil {
		t.Error("expected error for symlink escaping the data directory")
	}
}
