// Copyright 2015 ISRG.  All rights reserved
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package cmd holds configuration types shared by this responder's command
// entry points (cmd/ocsp-responder, cmd/crl-build, cmd/ca-admin).
package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	validator "github.com/letsencrypt/validator/v10"

	"github.com/bseddon/ocsp-responder/registry"
)

// ServiceConfig holds the fields every service entry point shares: where to
// expose /debug diagnostics and what to log at what level.
type ServiceConfig struct {
	DebugAddr string `json:"debugAddr" validate:"omitempty,hostname_port"`
	Syslog    SyslogConfig
}

// SyslogConfig configures the AuditLogger (log.New), mirroring the
// teacher's cmd.SyslogConfig shape.
type SyslogConfig struct {
	Network     string `json:"network"`
	Server      string `json:"server"`
	StdoutLevel *int   `json:"stdoutLevel" validate:"omitempty,min=0,max=4"`
}

// ConfigDuration is a time.Duration that deserializes from a Go duration
// string ("24h", "90s") in both JSON and YAML config files.
type ConfigDuration struct {
	time.Duration
}

// ErrDurationMustBeString is returned when a non-string value is presented
// to be deserialized as a ConfigDuration.
var ErrDurationMustBeString = errors.New("cannot JSON unmarshal something other than a string into a ConfigDuration")

func (d *ConfigDuration) UnmarshalJSON(b []byte) error {
	s := ""
	if err := json.Unmarshal(b, &s); err != nil {
		if _, ok := err.(*json.UnmarshalTypeError); ok {
			return ErrDurationMustBeString
		}
		return err
	}
	dd, err := time.ParseDuration(s)
	d.Duration = dd
	return err
}

func (d ConfigDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func (d *ConfigDuration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// ConfigSecret is a string-valued config field. If it starts with
// "secret:", the rest is a filename to read the value from at load time
// (trailing newlines trimmed), so secrets can live outside the config file
// (e.g. mounted from a secret store) instead of inline.
type ConfigSecret string

const secretPrefix = "secret:"

var errSecretMustBeString = errors.New("cannot JSON unmarshal something other than a string into a ConfigSecret")

func (d *ConfigSecret) UnmarshalJSON(b []byte) error {
	s := ""
	if err := json.Unmarshal(b, &s); err != nil {
		if _, ok := err.(*json.UnmarshalTypeError); ok {
			return errSecretMustBeString
		}
		return err
	}
	if !strings.HasPrefix(s, secretPrefix) {
		*d = ConfigSecret(s)
		return nil
	}
	contents, err := os.ReadFile(s[len(secretPrefix):])
	if err != nil {
		return err
	}
	*d = ConfigSecret(strings.TrimRight(string(contents), "\n"))
	return nil
}

// StoreConfig selects the backing revocation store (spec §4.4, §12): either
// a flat index.txt file or a MySQL DSN. When both are set,
// cmd/ocsp-responder uses the DSN; cmd/crl-build and cmd/ca-admin read only
// File.
type StoreConfig struct {
	File       string       `json:"file" yaml:"file"`
	DBConnect  ConfigSecret `json:"dbConnect" yaml:"dbConnect"`
	DedupeHits bool         `json:"dedupeHits" yaml:"dedupeHits"`
}

// TracingConfig configures the OTLP/gRPC trace exporter for
// cmd/ocsp-responder. Leaving OTLPEndpoint empty keeps the global no-op
// tracer in place and skips exporter setup entirely.
type TracingConfig struct {
	OTLPEndpoint string `json:"otlpEndpoint" yaml:"otlpEndpoint" validate:"omitempty,hostname_port"`
}

// OCSPResponderConfig configures cmd/ocsp-responder (spec §4.5, §4.7, §6).
type OCSPResponderConfig struct {
	ServiceConfig

	ListenAddress string `json:"listenAddress" validate:"required,hostname_port"`
	MetricsAddress string `json:"metricsAddress" validate:"omitempty,hostname_port"`

	Registry []registry.IssuerConfig `json:"registry" validate:"required,dive"`
	Store    StoreConfig             `json:"store"`

	TTL    ConfigDuration `json:"ttl"`
	MaxAge *ConfigDuration `json:"maxAge"`

	Tracing TracingConfig `json:"tracing"`

	ShutdownStopTimeout ConfigDuration `json:"shutdownStopTimeout"`
}

// CRLBuildConfig configures cmd/crl-build (spec §4.6, §6).
type CRLBuildConfig struct {
	IssuerCertificate string              `json:"issuerCertificate" validate:"required"`
	IssuerKey         registry.KeyConfig  `json:"issuerKey"`
	Store             StoreConfig         `json:"store"`
	Number            int64               `json:"number" validate:"required"`
	Version           int                 `json:"version" validate:"oneof=1 2"`
	Days              int                 `json:"days" validate:"required,gt=0"`
	Legacy            bool                `json:"legacy"`
	Out               string              `json:"out" validate:"required"`
}

// CAAdminConfig configures cmd/ca-admin (spec §6's optional admin commands).
type CAAdminConfig struct {
	Store StoreConfig `json:"store"`
}

var validate = validator.New()

// ValidateConfig runs struct-tag validation over any of the Config types
// above, the way this codebase validates configuration before a service
// starts rather than failing deep inside request handling.
func ValidateConfig(config interface{}) error {
	return validate.Struct(config)
}
