// Copyright 2026 The Acteon Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads client configuration for Acteon tools.
//
// Configuration comes from at most one file, named by the ACTEON_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no discovery: without either, [Load] starts
// from [Default]. Files are YAML; a path ending in .json or .jsonc is
// read as JSON with comments.
//
// The file may carry environment sections (development, staging,
// production) that override base values when [Config].Environment
// matches. After the file, a small set of environment variables
// override individual fields:
//
//   - ACTEON_URL -- gateway.url
//   - ACTEON_API_KEY -- gateway.api_key
//   - ACTEON_TIMEOUT -- gateway.timeout
//   - ACTEON_CHECKPOINT -- watch.checkpoint
//
// ${HOME}, ${XDG_STATE_HOME} and ${VAR:-default} patterns are expanded
// in the checkpoint path.
//
// This package depends on no other Acteon packages.
package config
