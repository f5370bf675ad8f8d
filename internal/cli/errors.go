package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Exit codes.
const (
	ExitCodeOK      = 0
	ExitCodeFailure = 1
	ExitCodeStopped = 2
)

// ErrInvalidJSON reports a malformed JSON flag value.
var ErrInvalidJSON = errors.New("invalid JSON")

// ExitError carries a non-zero exit code that is not a failure, such as
// an event stopped by a handler.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// PrintError writes err to w in the error style.
func PrintError(w io.Writer, err error) {
	r := lipgloss.NewRenderer(w)
	label := r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF6B6B"})
	fmt.Fprintf(w, "%s %v\n", label.Render("Error:"), err)
}
