package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadRuntime(t *testing.T) {
	path := writeFile(t, `# installer-written config
BOT_TOKEN = 123:abc
METRICS_URL=http://127.0.0.1:9090/metrics
CONDUIT_ENV_PATH=/etc/conduit/env
STATE_DIR=/var/lib/easyconduit

malformed line without equals
`)
	rt, err := LoadRuntime(path)
	if err != nil {
		t.Fatalf("LoadRuntime: %v", err)
	}
	if rt.BotToken != "123:abc" {
		t.Errorf("expected token 123:abc, got %q", rt.BotToken)
	}
	if rt.MetricsURL != "http://127.0.0.1:9090/metrics" {
		t.Errorf("unexpected metrics url %q", rt.MetricsURL)
	}
	if rt.PromListen != "" {
		t.Errorf("expected empty PromListen, got %q", rt.PromListen)
	}
}

func TestLoadRuntimeMissingKey(t *testing.T) {
	path := writeFile(t, "BOT_TOKEN=x\nMETRICS_URL=y\nSTATE_DIR=z\n")
	_, err := LoadRuntime(path)
	if err == nil {
		t.Fatal("expected error for missing CONDUIT_ENV_PATH, got nil")
	}
	if !strings.Contains(err.Error(), "CONDUIT_ENV_PATH") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadRuntimeMissingFile(t *testing.T) {
	if _, err := LoadRuntime(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoadConduitEnvDefaults(t *testing.T) {
	mc, bw := LoadConduitEnv(filepath.Join(t.TempDir(), "nope"))
	if mc != DefaultMaxClients || bw != DefaultBandwidthMbps {
		t.Errorf("expected defaults %d/%v, got %d/%v", DefaultMaxClients, DefaultBandwidthMbps, mc, bw)
	}
}

func TestLoadConduitEnv(t *testing.T) {
	path := writeFile(t, "MAX_CLIENTS=150\nBANDWIDTH=-1\nREGION=eu\n")
	mc, bw := LoadConduitEnv(path)
	if mc != 150 {
		t.Errorf("expected 150 max clients, got %d", mc)
	}
	if bw != -1 {
		t.Errorf("expected -1 bandwidth, got %v", bw)
	}
}

func TestLoadConduitEnvMalformedValue(t *testing.T) {
	path := writeFile(t, "MAX_CLIENTS=lots\nBANDWIDTH=20\n")
	mc, bw := LoadConduitEnv(path)
	if mc != DefaultMaxClients {
		t.Errorf("malformed MAX_CLIENTS should fall back to default, got %d", mc)
	}
	if bw != 20 {
		t.Errorf("expected 20, got %v", bw)
	}
}

func TestSetConduitParamPreservesUnknownKeys(t *testing.T) {
	path := writeFile(t, "# conduit limits\nMAX_CLIENTS=50\nREGION=eu\nBANDWIDTH=10\n")
	if err := SetConduitParam(path, "MAX_CLIENTS", "200"); err != nil {
		t.Fatalf("SetConduitParam: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	content := string(data)
	for _, want := range []string{"# conduit limits", "MAX_CLIENTS=200", "REGION=eu", "BANDWIDTH=10"} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in rewritten file, got:\n%s", want, content)
		}
	}
	if strings.Contains(content, "MAX_CLIENTS=50") {
		t.Errorf("old value survived rewrite:\n%s", content)
	}
}

func TestSetConduitParamCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env")
	if err := SetConduitParam(path, "BANDWIDTH", "15"); err != nil {
		t.Fatalf("SetConduitParam: %v", err)
	}
	mc, bw := LoadConduitEnv(path)
	if bw != 15 {
		t.Errorf("expected 15, got %v", bw)
	}
	if mc != DefaultMaxClients {
		t.Errorf("expected default max clients, got %d", mc)
	}
}
