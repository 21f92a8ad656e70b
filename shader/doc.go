// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shader provides the built-in shader programs of videomaker.
//
// Every program is a textured quad: a shared WGSL vertex stage that
// transforms positions by a 4x4 matrix, plus one fragment stage per
// filter. Each program also carries a CPU fragment kernel so that backends
// without a GPU execute the same color math.
//
// Programs:
//   - normal: passes the sampled texel through
//   - gray: BT.601 luma in all three channels
//   - luminance: brightens RGB by a fixed delta, clamped to 1
//   - reverse: inverts RGB
//
// [Compile] translates a program's WGSL to SPIR-V with naga.
package shader
