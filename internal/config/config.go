package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Runtime holds the settings the installer writes into the flat key=value
// runtime config file.
type Runtime struct {
	BotToken       string
	MetricsURL     string
	ConduitEnvPath string
	StateDir       string
	// PromListen is the optional listen address for the bot's own
	// Prometheus endpoint, e.g. "127.0.0.1:9321". Empty disables it.
	PromListen string
}

// LoadRuntime reads and validates the runtime config file.
func LoadRuntime(path string) (*Runtime, error) {
	kv, err := readKeyValueFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read runtime config: %w", err)
	}

	rt := &Runtime{
		BotToken:       kv["BOT_TOKEN"],
		MetricsURL:     kv["METRICS_URL"],
		ConduitEnvPath: kv["CONDUIT_ENV_PATH"],
		StateDir:       kv["STATE_DIR"],
		PromListen:     kv["PROM_LISTEN"],
	}

	if err := validateRuntime(rt, path); err != nil {
		return nil, err
	}
	return rt, nil
}

func validateRuntime(rt *Runtime, path string) error {
	required := []struct {
		key   string
		value string
	}{
		{"BOT_TOKEN", rt.BotToken},
		{"METRICS_URL", rt.MetricsURL},
		{"CONDUIT_ENV_PATH", rt.ConduitEnvPath},
		{"STATE_DIR", rt.StateDir},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("validation error: %s is required in %s", r.key, path)
		}
	}
	return nil
}

func readKeyValueFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	kv := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		kv[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return kv, nil
}

// Defaults applied when the conduit env file is missing or a value is
// malformed. BANDWIDTH is in Mbps; -1 means unlimited.
const (
	DefaultMaxClients    = 50
	DefaultBandwidthMbps = 10.0
)

// LoadConduitEnv reads MAX_CLIENTS and BANDWIDTH from the conduit env file.
// A missing file or an unparseable value falls back to the defaults; the
// conduit itself applies the same fallbacks.
func LoadConduitEnv(path string) (maxClients int, bandwidthMbps float64) {
	maxClients = DefaultMaxClients
	bandwidthMbps = DefaultBandwidthMbps

	kv, err := readKeyValueFile(path)
	if err != nil {
		return maxClients, bandwidthMbps
	}
	if v, ok := kv["MAX_CLIENTS"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			maxClients = n
		}
	}
	if v, ok := kv["BANDWIDTH"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			bandwidthMbps = f
		}
	}
	return maxClients, bandwidthMbps
}

// SetConduitParam rewrites the conduit env file with key set to value.
// Every other line, including comments and keys the bot does not know
// about, is preserved as-is.
func SetConduitParam(path, key, value string) error {
	var lines []string
	if data, err := os.ReadFile(path); err == nil {
		if trimmed := strings.TrimRight(string(data), "\n"); trimmed != "" {
			lines = strings.Split(trimmed, "\n")
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read conduit env: %w", err)
	}

	replaced := false
	out := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			if k, _, ok := strings.Cut(trimmed, "="); ok && strings.TrimSpace(k) == key {
				if replaced {
					// drop duplicate entries for the same key
					continue
				}
				out = append(out, key+"="+value)
				replaced = true
				continue
			}
		}
		out = append(out, line)
	}
	if !replaced {
		out = append(out, key+"="+value)
	}

	content := strings.Join(out, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write conduit env: %w", err)
	}
	return nil
}
