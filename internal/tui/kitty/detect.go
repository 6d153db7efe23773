package kitty

import (
	"strings"

	"github.com/lecternapp/lectern/internal/core/config"
)

// Supported reports whether the terminal speaks the kitty graphics
// protocol, judged from the environment. env is the lookup function
// (os.Getenv in production) so detection is testable.
func Supported(env func(string) string) bool {
	if env("KITTY_WINDOW_ID") != "" {
		return true
	}
	term := env("TERM")
	if strings.Contains(term, "kitty") || strings.Contains(term, "ghostty") {
		return true
	}
	switch env("TERM_PROGRAM") {
	case "WezTerm", "ghostty":
		return true
	}
	return false
}

// Enabled resolves the configured protocol and the live terminal into
// the final rendering decision. The result feeds both the layout
// signature and the renderer, which must agree.
func Enabled(p config.ImageProtocol, env func(string) string, isTerminal bool) bool {
	if !isTerminal {
		return false
	}
	switch p {
	case config.ProtocolOff:
		return false
	case config.ProtocolKitty:
		return true
	default:
		return Supported(env)
	}
}
