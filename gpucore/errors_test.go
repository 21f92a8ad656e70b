package gpucore

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorName(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "EGL_SUCCESS"},
		{"context lost", ErrContextLost, "EGL_CONTEXT_LOST"},
		{"wrapped bad surface", fmt.Errorf("swap: %w", ErrBadSurface), "EGL_BAD_SURFACE"},
		{"bad config", ErrBadConfig, "EGL_BAD_CONFIG"},
		{"incomplete fbo", ErrIncompleteFramebuffer, "GL_FRAMEBUFFER_INCOMPLETE_ATTACHMENT"},
		{"foreign", errors.New("boom"), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorName(tt.err); got != tt.want {
				t.Errorf("ErrorName(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestInvalidID(t *testing.T) {
	var tex TextureID
	if tex != InvalidID {
		t.Errorf("zero TextureID = %d, want InvalidID", tex)
	}
	if DefaultFramebuffer != InvalidID {
		t.Errorf("DefaultFramebuffer = %d, want 0", DefaultFramebuffer)
	}
}
