// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"fmt"
	"sync"

	"github.com/gogpu/naga"

	"github.com/gogpu/videomaker/gpucore"
)

// spirvCache memoizes compiled programs by WGSL source.
var (
	spirvMu    sync.Mutex
	spirvCache = make(map[string][]uint32)
)

// Compile translates the program's WGSL to SPIR-V words.
// Results are cached per source text.
func Compile(src gpucore.ProgramSource) ([]uint32, error) {
	spirvMu.Lock()
	code, ok := spirvCache[src.WGSL]
	spirvMu.Unlock()
	if ok {
		return code, nil
	}

	spirvBytes, err := naga.Compile(src.WGSL)
	if err != nil {
		return nil, fmt.Errorf("shader: compile %s: %w", src.Label, err)
	}

	// SPIR-V is little-endian 32-bit words
	code = make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	spirvMu.Lock()
	spirvCache[src.WGSL] = code
	spirvMu.Unlock()
	return code, nil
}
