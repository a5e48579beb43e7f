// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// Package stage implements "warren stage": reclaim stale staging
// data, resolve and stage a mount set, then run the wrapped launcher
// command with the resolved view described in its environment. The
// staging root is removed on every exit path of the invocation.
package stage
