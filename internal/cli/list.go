package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dshills/switchboard/internal/app"
	"github.com/dshills/switchboard/internal/plugin"
	"github.com/dshills/switchboard/internal/priority"
)

// listStyles renders list output. Colors are dropped when the output is
// not a terminal.
type listStyles struct {
	title    lipgloss.Style
	key      lipgloss.Style
	priority lipgloss.Style
	owner    lipgloss.Style
	muted    lipgloss.Style
}

func newListStyles(w io.Writer) listStyles {
	r := lipgloss.NewRenderer(w)
	return listStyles{
		title:    r.NewStyle().Bold(true).Underline(true),
		key:      r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#005F87", Dark: "#5FD7FF"}),
		priority: r.NewStyle().Width(6).Align(lipgloss.Right).Foreground(lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD75F"}),
		owner:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#87D787"}),
		muted:    r.NewStyle().Faint(true),
	}
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List plugins and registered handlers by bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(commandContext(cmd), func(ctx context.Context, a *app.Application) error {
				w := cmd.OutOrStdout()
				s := newListStyles(w)

				fmt.Fprintln(w, s.title.Render("Plugins"))
				hosts := a.Plugins().Plugins()
				if len(hosts) == 0 {
					fmt.Fprintln(w, "  "+s.muted.Render("(none)"))
				}
				for _, h := range hosts {
					fmt.Fprintf(w, "  %s %s %s\n",
						s.owner.Render(h.Name()),
						h.Manifest().Version,
						s.muted.Render(h.State().String()))
				}

				fmt.Fprintln(w)
				fmt.Fprintln(w, s.title.Render("Events"))
				writeBuckets(w, s, a.Events().Buckets(), a.Events().Entries)

				fmt.Fprintln(w)
				fmt.Fprintln(w, s.title.Render("Hooks"))
				writeBuckets(w, s, a.Hooks().Buckets(), a.Hooks().Entries)
				return nil
			})
		},
	}
}

// writeBuckets prints each bucket followed by its handlers in call order.
func writeBuckets[H any](w io.Writer, s listStyles, keys []priority.Key, entries func(primary, secondary string) []priority.Entry[H]) {
	if len(keys) == 0 {
		fmt.Fprintln(w, "  "+s.muted.Render("(none)"))
		return
	}
	for _, k := range keys {
		fmt.Fprintln(w, "  "+s.key.Render(k.String()))
		for _, e := range entries(k.Primary, k.Secondary) {
			fmt.Fprintf(w, "  %s  %s\n", s.priority.Render(fmt.Sprint(e.Priority)), describeHandler(e.Handler))
		}
	}
}

func describeHandler(h any) string {
	if name, ok := plugin.Owner(h); ok {
		return "plugin " + name
	}
	return fmt.Sprintf("%T", h)
}
