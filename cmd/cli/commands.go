package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	u "github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/laatu08/Offline-Note-App/internal/client/netstate"
	"github.com/laatu08/Offline-Note-App/internal/client/store"
	"github.com/laatu08/Offline-Note-App/internal/client/syncer"
	"github.com/laatu08/Offline-Note-App/internal/config"
	"github.com/laatu08/Offline-Note-App/internal/model"
)

func newRootCmd() *cobra.Command {
	g := &globals{cfg: config.ClientDefaults()}

	root := &cobra.Command{
		Use:           "notes",
		Short:         "Offline-first notes with server sync",
		Version:       fmt.Sprintf("%s (%s)", version, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.cfg.Addr, "addr", g.cfg.Addr, "server gRPC address")
	pf.StringVar(&g.cfg.DBPath, "db", g.cfg.DBPath, "local replica path")
	pf.StringVar(&g.cfg.CACert, "cacert", g.cfg.CACert, "CA cert (PEM)")
	pf.BoolVar(&g.cfg.Insecure, "insecure", g.cfg.Insecure, "skip cert verify (dev)")
	pf.BoolVar(&g.cfg.Plaintext, "plaintext", g.cfg.Plaintext, "no TLS (local dev only)")
	pf.StringVar(&g.cfg.LogFile, "log-file", g.cfg.LogFile, "write logs to a rotated file")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		loginCmd(),
		logoutCmd(g),
		newNoteCmd(g),
		editCmd(g),
		rmCmd(g),
		lsCmd(g),
		showCmd(g),
		syncCmd(g),
		resolveCmd(g),
		watchCmd(g),
	)
	return root
}

// withSession opens a one-shot session that treats the server as reachable;
// an unreachable server shows up as a failed round.
func withSession(g *globals, fn func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, g, netstate.Static(true))
		if err != nil {
			return err
		}
		defer s.close()
		s.orch.Subscribe(reportConflicts(cmd.ErrOrStderr()))
		return fn(ctx, s, cmd, args)
	}
}

// resolveID accepts a full id or a unique prefix of a local note id.
func resolveID(ctx context.Context, s store.Store, arg string) (u.UUID, error) {
	if id, err := u.FromString(arg); err == nil {
		return id, nil
	}
	arg = strings.ToLower(arg)
	all, err := s.GetAll(ctx)
	if err != nil {
		return u.Nil, err
	}
	var match []u.UUID
	for _, n := range all {
		if strings.HasPrefix(n.ID.String(), arg) {
			match = append(match, n.ID)
		}
	}
	switch len(match) {
	case 0:
		return u.Nil, fmt.Errorf("no note matches %q", arg)
	case 1:
		return match[0], nil
	default:
		return u.Nil, fmt.Errorf("%q matches %d notes", arg, len(match))
	}
}

func contentFlag(cmd *cobra.Command, content, file string) (string, bool, error) {
	if file != "" {
		b, err := readAll(file)
		return string(b), true, err
	}
	return content, cmd.Flags().Changed("content"), nil
}

func loginCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a bearer token issued by the auth service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				return errors.New("need --token")
			}
			tf, err := tokenFromString(token)
			if err != nil {
				return err
			}
			if err := saveToken(tf); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (token expires %s)\n", tf.UserID, tf.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "JWT bearer token")
	return cmd
}

func logoutCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the token and wipe the local replica",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := store.OpenSQLite(cmd.Context(), g.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Clear(cmd.Context()); err != nil {
				return err
			}
			if err := removeState(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newNoteCmd(g *globals) *cobra.Command {
	var title, content, file string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: withSession(g, func(ctx context.Context, s *session, cmd *cobra.Command, _ []string) error {
			body, _, err := contentFlag(cmd, content, file)
			if err != nil {
				return err
			}
			n, err := s.ed.Create(ctx, title, body)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n.ID)
			_, _ = s.sync(ctx, cmd.ErrOrStderr())
			return nil
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "note title")
	cmd.Flags().StringVar(&content, "content", "", "note content")
	cmd.Flags().StringVar(&file, "file", "", "read content from file (- for stdin)")
	return cmd
}

func editCmd(g *globals) *cobra.Command {
	var title, content, file string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a note's title or content",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(g, func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			id, err := resolveID(ctx, s.local, args[0])
			if err != nil {
				return err
			}
			cur, err := s.ed.Get(ctx, id)
			if err != nil {
				return err
			}
			body, set, err := contentFlag(cmd, content, file)
			if err != nil {
				return err
			}
			if !set {
				body = cur.Content
			}
			if !cmd.Flags().Changed("title") {
				title = cur.Title
			}
			n, changed, err := s.ed.Save(ctx, id, title, body)
			if err != nil {
				return err
			}
			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), "no changes")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%d\n", n.ID, n.Version)
			_, _ = s.sync(ctx, cmd.ErrOrStderr())
			return nil
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringVar(&file, "file", "", "read content from file (- for stdin)")
	return cmd
}

func rmCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(g, func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			id, err := resolveID(ctx, s.local, args[0])
			if err != nil {
				return err
			}
			if err := s.ed.Delete(ctx, id); err != nil {
				return err
			}
			if len(s.orch.PendingDeletions()) > 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "deleted locally; the server will be told on the next sync")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Note deleted")
			return nil
		}),
	}
}

func lsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List local notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := store.OpenSQLite(cmd.Context(), g.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			ns, err := db.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			model.SortForDisplay(ns)
			writeTable(cmd.OutOrStdout(), ns)
			return nil
		},
	}
}

func writeTable(w io.Writer, ns []model.Note) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVER\tSTATUS\tUPDATED\tTITLE")
	for _, n := range ns {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			n.ID.String()[:8], n.Version, n.SyncStatus, n.UpdatedAt.Local().Format(time.DateTime), n.Title)
	}
	_ = tw.Flush()
}

type noteView struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
	Version      int64  `json:"version"`
	SyncStatus   string `json:"syncStatus"`
	LastSyncedAt string `json:"lastSyncedAt,omitempty"`
}

func viewOf(n model.Note) noteView {
	v := noteView{
		ID:         n.ID.String(),
		UserID:     n.UserID.String(),
		Title:      n.Title,
		Content:    n.Content,
		CreatedAt:  n.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  n.UpdatedAt.Format(time.RFC3339),
		Version:    n.Version,
		SyncStatus: string(n.SyncStatus),
	}
	if !n.LastSyncedAt.IsZero() {
		v.LastSyncedAt = n.LastSyncedAt.Format(time.RFC3339)
	}
	return v
}

func showCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a note as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := store.OpenSQLite(ctx, g.cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			id, err := resolveID(ctx, db, args[0])
			if err != nil {
				return err
			}
			n, err := db.Get(ctx, id)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), viewOf(n))
			return nil
		},
	}
}

func printOutcome(w io.Writer, out syncer.Outcome) {
	if out.Skipped != "" {
		fmt.Fprintf(w, "sync skipped: %s\n", out.Skipped)
		return
	}
	fmt.Fprintf(w, "pushed %d, pulled %d, purged %d, deletions %d, conflicts %d\n",
		out.Pushed, out.Pulled, out.Purged, out.DeletionsConfirmed, len(out.PushConflicts)+len(out.PullConflicts))
}

func syncCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync round",
		Args:  cobra.NoArgs,
		RunE: withSession(g, func(ctx context.Context, s *session, cmd *cobra.Command, _ []string) error {
			out, err := s.orch.RunOnce(ctx, s.tok.AccessToken)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), out)
			return nil
		}),
	}
}

func resolveCmd(g *globals) *cobra.Command {
	var keep string
	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Settle a conflict by keeping the local or the server copy",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(g, func(ctx context.Context, s *session, cmd *cobra.Command, args []string) error {
			if keep != "local" && keep != "server" {
				return fmt.Errorf("--keep must be local or server, got %q", keep)
			}
			id, err := resolveID(ctx, s.local, args[0])
			if err != nil {
				return err
			}
			live, err := s.api.List(ctx, s.tok.AccessToken, time.Time{})
			if err != nil {
				return err
			}
			var srv *model.Note
			for i := range live {
				if live[i].ID == id {
					srv = &live[i]
					break
				}
			}
			if srv == nil {
				return fmt.Errorf("server has no live copy of %s", id)
			}
			if keep == "server" {
				err = s.ed.KeepServer(ctx, *srv)
			} else {
				err = s.ed.KeepLocal(ctx, *srv)
			}
			if err != nil {
				return err
			}
			n, err := s.ed.Get(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%d %s\n", n.ID, n.Version, n.SyncStatus)
			return nil
		}),
	}
	cmd.Flags().StringVar(&keep, "keep", "", "local|server")
	return cmd
}

func watchCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync periodically and on reconnect until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if g.cfg.SyncInterval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", g.cfg.SyncInterval)
			}
			ctx := cmd.Context()
			s, err := openSession(ctx, g, nil)
			if err != nil {
				return err
			}
			defer s.close()

			s.orch.Subscribe(reportConflicts(cmd.ErrOrStderr()))
			s.orch.Subscribe(syncer.ObserverFunc(func(e syncer.Event) {
				switch e.Kind {
				case syncer.SyncSuccess:
					fmt.Fprintf(cmd.OutOrStdout(), "%s synced\n", time.Now().Format(time.TimeOnly))
				case syncer.SyncError:
					fmt.Fprintf(cmd.ErrOrStderr(), "%s sync failed: %v\n", time.Now().Format(time.TimeOnly), e.Err)
				}
			}))

			go s.mon.Run(ctx)
			go s.orch.SyncOnReconnect(ctx, s.tok.AccessToken, s.mon.Changes())
			s.orch.StartPeriodic(ctx, s.tok.AccessToken, g.cfg.SyncInterval)

			<-ctx.Done()
			s.orch.StopPeriodic()
			s.orch.Wait()
			s.log.Debug("watch stopped", zap.Error(context.Cause(ctx)))
			return nil
		},
	}
	cmd.Flags().DurationVar(&g.cfg.SyncInterval, "interval", g.cfg.SyncInterval, "periodic sync interval")
	return cmd
}
