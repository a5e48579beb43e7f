// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile implements the "warren profile" command group for
// listing and inspecting mount profiles.
package profile
