// Package config loads and validates the broker process's JSON
// configuration: ops HTTP listen address, persistence DSN, the optional
// NATS telemetry mirror target, the reactor's base poll tick, the
// metrics substrate's rolling-counter window set, and the system-gauge
// sample paths. Hard protocol limits (name lengths, max groups/node, ...)
// are not here: those are compiled-in constants in internal/schema/limits.go,
// per spec §6.3/§6.4.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Config is the broker's top-level configuration surface.
type Config struct {
	OpsListenAddr     string `json:"ops-listen-addr"`
	PersistenceDSN    string `json:"persistence-dsn"`
	NatsAddress       string `json:"nats-address,omitempty"`
	NatsSubject       string `json:"nats-subject,omitempty"`
	ReactorBaseTickMS int    `json:"reactor-base-tick-ms"`
	MetricsWindows    []int  `json:"metrics-windows-seconds"`
	DiskPath          string `json:"disk-path,omitempty"`
	CoreDumpDir       string `json:"core-dump-dir,omitempty"`
	GopsEnabled       bool   `json:"gops-enabled"`
	LogLevel          string `json:"log-level"`
}

// Default holds the out-of-the-box configuration; Load starts from a
// copy of this and overlays whatever the config file sets.
var Default = Config{
	OpsListenAddr:     ":8090",
	PersistenceDSN:    "./var/neuron.db",
	NatsSubject:       "neuron.telemetry",
	ReactorBaseTickMS: 100,
	MetricsWindows:    []int{5, 30, 60, 600, 1800},
	DiskPath:          "/",
	LogLevel:          "info",
}

// Load reads path, validates it against the embedded JSON Schema, and
// decodes it over a copy of Default. A missing file is not an error —
// the caller gets Default back unchanged; config.json is optional.
func Load(path string) (Config, error) {
	cfg := Default
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := validate(raw); err != nil {
		return cfg, fmt.Errorf("validate config %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}
