// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the tcbot configuration file.
//
// Configuration comes from a single file named by the TCBOT_CONFIG
// environment variable ([Load]) or a --config flag ([LoadFile]). There
// is no discovery and no search path. YAML is the native format; files
// ending in .json or .jsonc are accepted after comments and trailing
// commas are stripped.
//
// The file may carry development, staging and production sections
// whose non-empty fields override the base values when
// [Config].Environment matches.
//
// ${VAR} and ${VAR:-default} are expanded in paths, tokens and the
// Redis password after loading. ${TCBOT_ROOT} refers to the state
// directory so the storage path can be written relative to it.
//
// Key exports:
//
//   - [Config] -- storage, cache, servers, tracked suites, serve loop
//   - [Default] -- development defaults applied under the file
//   - [Load] and [LoadFile] -- the two entry points
//   - [BuildParameter] -- a build parameter with random value choice
package config
