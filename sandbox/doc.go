// Copyright 2026 The Warren Authors
// SPDX-License-Identifier: Apache-2.0

// Package sandbox turns declarative mount specifications into a safe,
// symlink-free filesystem view for a microVM guest, and manages the
// ephemeral staging data that view requires.
//
// The central types are [MountSpec], a declared mount parsed from the
// line format "source:dest:mode:optional|required", and [Resolver],
// which expands shorthand tokens, classifies the source, and produces
// [ResolvedMount] triples. File sources are passed through directly.
// Directory sources are copied into the invocation's [StagingRoot]
// with every symlink dereferenced, so the guest can never follow a
// link out of the declared source tree. A required source that does
// not exist aborts resolution outright; partial mount sets are never
// produced.
//
// Staging roots live under a shared user-scoped cache directory,
// partitioned by owning process id. Each root carries a CBOR manifest
// recording the owner's pid and start-time fingerprint plus a BLAKE3
// digest per staged entry. [ReclaimStale] garbage-collects roots whose
// owner is gone, including the case where the pid has been recycled to
// an unrelated process (the start-time fingerprint disambiguates).
// Reclamation runs at the start of each new invocation; there is no
// background sweeper and no daemon.
//
// Profiles are YAML-driven named mount sets with single inheritance
// via the Extends field ([ProfileLoader]). A profile contributes mount
// lines, environment variables for the wrapped command, and the
// terminal geometry handed to the relay.
//
// The package intentionally does not invoke the microVM runtime. It
// resolves and stages, then hands the resolved triples to whatever
// command the caller wraps; runtime invocation and its flags belong to
// the orchestrator.
package sandbox
