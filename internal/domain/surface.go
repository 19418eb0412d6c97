package domain

import "strings"

// Surface is the kind of conversation an activity arrives on.
type Surface string

const (
	SurfacePersonal Surface = "personal"
	SurfaceChannel  Surface = "channel"
)

// ParseSurface resolves a conversation type case-insensitively.
// The second result is false for conversation types the bot does not serve.
func ParseSurface(conversationType string) (Surface, bool) {
	switch Surface(strings.ToLower(strings.TrimSpace(conversationType))) {
	case SurfacePersonal:
		return SurfacePersonal, true
	case SurfaceChannel:
		return SurfaceChannel, true
	default:
		return "", false
	}
}
