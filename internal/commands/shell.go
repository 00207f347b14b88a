package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/session"
)

const prompt = "bm> "

func addShell(topLevel *cobra.Command, ro *rootOptions) {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Run bm commands against one open session",
		Long: `Keep the collection open and run bm commands on it line by line.
Edits are written after sync.debounce of quiet; changes made elsewhere
are merged while the shell runs. Builtins: status, sync, exit.
Edits still waiting for their quiet period are written on exit.`,
		Example: `
bm shell
bm> add go.dev Go
bm> category pattern Go go.dev
bm> exit
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ro.shared != nil {
				return errors.New("already inside a shell")
			}
			cfg, log, err := ro.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			out := &lockedWriter{w: cmd.OutOrStdout()}
			errOut := &lockedWriter{w: cmd.ErrOrStderr()}

			d, err := session.Open(ctx, cfg, log, session.Options{
				Live:      true,
				Clipboard: ro.opts.Clipboard,
				OnSyncError: func(err error) {
					_, _ = fmt.Fprintf(errOut, "%s %v\n", red("sync failed:"), err)
				},
			})
			if err != nil {
				return err
			}
			unsubscribe := d.Store.Subscribe(func(c model.Change) {
				if c.Origin != model.OriginRemote {
					return
				}
				_, _ = fmt.Fprintln(errOut, faint(fmt.Sprintf("remote update: %d bookmarks, %d categories",
					len(c.Snapshot.Bookmarks), len(c.Snapshot.Categories))))
			})

			runErr := runShell(ctx, cmd.InOrStdin(), out, errOut, ro, d)
			unsubscribe()
			if d.Sync != nil && d.Sync.Pending() {
				_, _ = fmt.Fprintln(errOut, faint("writing pending edits before exit"))
			}
			commitErr := d.Commit(ctx)
			closeErr := d.Close()
			return errors.Join(runErr, commitErr, closeErr)
		},
	}
	topLevel.AddCommand(cmd)
}

func runShell(ctx context.Context, in io.Reader, out, errOut io.Writer, ro *rootOptions, d *session.Deps) error {
	inner := &rootOptions{
		ConfigPath: ro.ConfigPath,
		LogLevel:   ro.LogLevel,
		opts:       ro.opts,
		shared:     d,
	}

	scanner := bufio.NewScanner(in)
	_, _ = fmt.Fprint(out, prompt)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "exit", "quit":
			return nil
		case "status":
			printStatus(out, d)
		case "sync":
			if err := d.Commit(ctx); err != nil {
				_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
			}
		default:
			args, err := shlex.Split(line)
			if err != nil {
				_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
				break
			}
			root := newRoot(inner)
			root.SetArgs(args)
			root.SetIn(strings.NewReader(""))
			root.SetOut(out)
			root.SetErr(errOut)
			if err := root.ExecuteContext(ctx); err != nil {
				_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
			}
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		_, _ = fmt.Fprint(out, prompt)
	}
	return scanner.Err()
}

func printStatus(w io.Writer, d *session.Deps) {
	switch {
	case d.Sync == nil:
		_, _ = fmt.Fprintf(w, "local %s storage at %s\n", d.Config.Local.Format, d.Local.Path())
	case d.Sync.Pending():
		_, _ = fmt.Fprintf(w, "%s as %s: edits pending\n", d.Config.Backend, d.User.Email)
	default:
		_, _ = fmt.Fprintf(w, "%s as %s: in sync\n", d.Config.Backend, d.User.Email)
	}
	_, _ = fmt.Fprintf(w, "%d bookmarks, %d categories\n", len(d.Store.Bookmarks()), len(d.Store.Categories()))
}

// lockedWriter serializes writes from the prompt loop and sync callbacks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
