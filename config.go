// Copyright (c) Liam Stanley <me@liamstanley.io>. All rights reserved. Use
// of this source code is governed by the MIT license that can be found in
// the LICENSE file.

package ircx

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// FileConfig is the on-disk, YAML-shaped subset of Config. Fields that
// can't be expressed in YAML (TLSConfig, RecoverFunc, HandleNickCollide,
// SASL, Pacer, Debug/Out writers) are left for the caller to set on the
// Config returned by LoadConfig.
type FileConfig struct {
	Server     string        `yaml:"server"`
	ServerPass string        `yaml:"server_pass"`
	Port       int           `yaml:"port"`
	Nick       string        `yaml:"nick"`
	User       string        `yaml:"user"`
	Name       string        `yaml:"name"`
	Bind       string        `yaml:"bind"`

	SSL                 bool `yaml:"ssl"`
	DisableSTS          bool `yaml:"disable_sts"`
	DisableSTSFallback  bool `yaml:"disable_sts_fallback"`
	AllowFlood          bool `yaml:"allow_flood"`
	GlobalFormat        bool `yaml:"global_format"`
	DisableCapTracking  bool `yaml:"disable_cap_tracking"`

	PingDelay   time.Duration `yaml:"ping_delay"`
	PingTimeout time.Duration `yaml:"ping_timeout"`

	SupportedCaps map[string][]string `yaml:"supported_caps"`
}

// LoadConfig reads a YAML file at path and returns a Config populated from
// it. The returned Config still needs any fields LoadConfig can't express
// (TLSConfig, RecoverFunc, HandleNickCollide, SASL, Pacer) set by the
// caller before use.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("ircx: opening config %q: %w", path, err)
	}
	defer f.Close()

	var fc FileConfig
	if err := yaml.NewDecoder(f).Decode(&fc); err != nil {
		return Config{}, fmt.Errorf("ircx: parsing config %q: %w", path, err)
	}

	return Config{
		Server:              fc.Server,
		ServerPass:          fc.ServerPass,
		Port:                fc.Port,
		Nick:                fc.Nick,
		User:                fc.User,
		Name:                fc.Name,
		Bind:                fc.Bind,
		SSL:                 fc.SSL,
		DisableSTS:          fc.DisableSTS,
		DisableSTSFallback:  fc.DisableSTSFallback,
		AllowFlood:          fc.AllowFlood,
		GlobalFormat:        fc.GlobalFormat,
		DisableCapTracking:  fc.DisableCapTracking,
		PingDelay:           fc.PingDelay,
		PingTimeout:         fc.PingTimeout,
		SupportedCaps:       fc.SupportedCaps,
	}, nil
}
