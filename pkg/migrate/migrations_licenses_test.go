package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLicensesMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_licenses.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no licenses migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE license_status AS ENUM",
		"CREATE TABLE IF NOT EXISTS licenses",
		"CREATE UNIQUE INDEX idx_licenses_order_id ON licenses (order_id)",
		"CREATE TABLE IF NOT EXISTS device_activations",
		"CREATE UNIQUE INDEX idx_device_activations_license_device ON device_activations (license_id, device_id)",
		"CHECK (activations >= 0)",
		"DROP TABLE IF EXISTS device_activations",
		"DROP TABLE IF EXISTS licenses",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
