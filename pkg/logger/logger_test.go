package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitWritesJSONToFileAndAudit(t *testing.T) {
	t.Cleanup(func() { _ = Sync() })
	_ = Sync()

	dir := t.TempDir()
	appLog := filepath.Join(dir, "app.log")
	auditLog := filepath.Join(dir, "audit", "trades.log")

	if err := Init(Config{
		Level:       "debug",
		OutputPaths: []string{appLog},
		Audit:       AuditConfig{Enabled: true, Path: auditLog},
	}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := Init(Config{}); err == nil {
		t.Fatalf("expected second init to fail")
	}

	Named("dex").Debug("quote requested", "asset_in", "HBAR")
	Audit().Info("swap submitted", "tx_id", "0.0.2@1700000000.000000000")
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	content, err := os.ReadFile(appLog)
	if err != nil {
		t.Fatalf("read app log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &entry); err != nil {
		t.Fatalf("decode app log %q: %v", content, err)
	}
	if entry["component"] != "dex" || entry["asset_in"] != "HBAR" {
		t.Fatalf("unexpected entry %+v", entry)
	}

	audit, err := os.ReadFile(auditLog)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(audit), "0.0.2@1700000000.000000000") {
		t.Fatalf("audit log missing transaction id: %s", audit)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"debug": "DEBUG", "WARNING": "WARN", "error": "ERROR", "": "INFO"}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
