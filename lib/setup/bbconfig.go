// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package setup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// passthroughVariables are always whitelisted into the build
// environment, ahead of whatever the config's env table declares.
var passthroughVariables = []string{
	"ALL_PROXY", "FTP_PROXY", "GIT_PROXY_COMMAND", "HTTPS_PROXY",
	"HTTP_PROXY", "NO_PROXY", "SHELL", "SSH_AGENT_PID",
	"SSH_AUTH_SOCK", "TERM",
}

// SetupEnviron computes the environment for the downstream build
// shell: every variable declared in the config's env table (real
// process environment winning over config defaults), plus
// BB_ENV_EXTRAWHITE listing the variable names the build tool may
// read through.
type SetupEnviron struct{}

func (s *SetupEnviron) Name() string { return "setup_environ" }

func (s *SetupEnviron) Execute(ctx context.Context, setup *Context) error {
	declared, err := setup.Config.Environment()
	if err != nil {
		return err
	}

	environ := make(map[string]string, len(declared)+1)
	whitelist := append([]string(nil), passthroughVariables...)
	for name, value := range declared {
		environ[name] = value
		whitelist = append(whitelist, name)
	}
	sort.Strings(whitelist)
	environ["BB_ENV_EXTRAWHITE"] = strings.Join(whitelist, " ")

	setup.Environ = environ
	return nil
}

// WriteBBConfig renders the stabilized configuration into the build
// tool's native files: conf/bblayers.conf (layer search path) and
// conf/local.conf (machine, distro, multiconfig). Both files are
// fully regenerated on every run and depend only on the merged
// config, so output is reproducible.
type WriteBBConfig struct{}

func (w *WriteBBConfig) Name() string { return "write_bbconfig" }

func (w *WriteBBConfig) Execute(ctx context.Context, setup *Context) error {
	confDir := filepath.Join(setup.BuildDir, "conf")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		return fmt.Errorf("creating conf directory: %w", err)
	}

	bblayers, err := renderBBLayersConf(setup)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(confDir, "bblayers.conf"), []byte(bblayers), 0o644); err != nil {
		return fmt.Errorf("writing bblayers.conf: %w", err)
	}

	localConf, err := renderLocalConf(setup)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(confDir, "local.conf"), []byte(localConf), 0o644); err != nil {
		return fmt.Errorf("writing local.conf: %w", err)
	}
	return nil
}

func renderBBLayersConf(setup *Context) (string, error) {
	header, err := setup.Config.BBLayersConfHeader()
	if err != nil {
		return "", err
	}
	handles, err := setup.Config.Repos()
	if err != nil {
		return "", err
	}

	var layers []string
	for _, handle := range handles {
		layers = append(layers, handle.LayerDirs()...)
	}
	sort.Strings(layers)

	var out strings.Builder
	out.WriteString(header)
	out.WriteString("BBPATH = \"${TOPDIR}\"\n")
	out.WriteString("BBFILES ?= \"\"\n")
	out.WriteString("BBLAYERS ?= \" \\\n")
	for _, layer := range layers {
		out.WriteString("    ")
		out.WriteString(layer)
		out.WriteString(" \\\n")
	}
	out.WriteString("\"\n")
	return out.String(), nil
}

func renderLocalConf(setup *Context) (string, error) {
	header, err := setup.Config.LocalConfHeader()
	if err != nil {
		return "", err
	}
	machine, err := setup.Config.Machine()
	if err != nil {
		return "", err
	}
	distro, err := setup.Config.Distro()
	if err != nil {
		return "", err
	}
	multiconfig, err := setup.Config.Multiconfig()
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.WriteString(header)
	fmt.Fprintf(&out, "MACHINE ??= %q\n", machine)
	fmt.Fprintf(&out, "DISTRO ??= %q\n", distro)
	if multiconfig != "" {
		fmt.Fprintf(&out, "BBMULTICONFIG ?= %q\n", multiconfig)
	}
	return out.String(), nil
}
