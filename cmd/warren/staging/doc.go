// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// Package staging implements the "warren staging" command group:
// inspection and maintenance of the staging cache that "warren stage"
// copies directory mounts into.
package staging
