package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/lecternapp/lectern/internal/lectern"
)

// BookCompleter returns a ShellCompleteFunc that suggests indexed book
// paths as positional completions. Set this as the ShellComplete field
// on any cli.Command that accepts a book argument.
//
// When the user's last typed argument starts with "-", it falls back to
// the default flag completion behavior.
func BookCompleter(app *lectern.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		// Delegate to default flag completion when typing a flag
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		books, err := app.Library.List(ctx)
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, b := range books {
			_, _ = fmt.Fprintln(w, b.Path)
		}
	}
}
