package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"
	"github.com/Keekuun/nexus-studio-sub001/internal/storage"
	"github.com/Keekuun/nexus-studio-sub001/internal/thread"
)

func newCommentsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Inspect and edit the comment store",
	}

	cmd.AddCommand(newListCommand(a), newAddCommand(a), newExportCommand(a))

	return cmd
}

func newListCommand(a *app) *cobra.Command {
	var nodeID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print comments as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(func(svc *thread.Service) error {
				var (
					v   any
					err error
				)

				if nodeID != "" {
					v, err = svc.List(cmd.Context(), nodeID)
				} else {
					v, err = svc.ListAll(cmd.Context())
				}

				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), v)
			})
		},
	}

	cmd.Flags().StringVar(&nodeID, "node", "", "only list comments of this node")

	return cmd
}

func newAddCommand(a *app) *cobra.Command {
	var (
		in     thread.CreateInput
		author comment.Author
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a comment to a node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in.Author = authorFromFlags(cmd, author)

			return a.withService(func(svc *thread.Service) error {
				c, err := svc.Create(cmd.Context(), in)
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), c)
			})
		},
	}

	cmd.Flags().StringVar(&in.NodeID, "node", "", "node the comment is anchored to")
	cmd.Flags().StringVar(&in.Content, "content", "", "comment text")
	cmd.Flags().StringVar(&author.ID, "author-id", "", "author ID (unset author fields fall back to the guest author)")
	cmd.Flags().StringVar(&author.Name, "author-name", "", "author display name")
	cmd.Flags().StringVar(&author.Avatar, "author-avatar", "", "author avatar URL")

	_ = cmd.MarkFlagRequired("node")
	_ = cmd.MarkFlagRequired("content")

	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the whole store as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(func(svc *thread.Service) error {
				threads, err := svc.ListAll(cmd.Context())
				if err != nil {
					return err
				}

				if out == "" {
					return storage.Export(cmd.OutOrStdout(), threads, format)
				}

				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}

				return exportTo(f, threads, format)
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", storage.FormatJSON, "output format: json or yaml")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")

	return cmd
}

// authorFromFlags returns nil when no author flag was set. Otherwise the
// given fields override the guest author.
func authorFromFlags(cmd *cobra.Command, given comment.Author) *comment.Author {
	flags := cmd.Flags()
	if !flags.Changed("author-id") && !flags.Changed("author-name") && !flags.Changed("author-avatar") {
		return nil
	}

	a := comment.GuestAuthor()

	if given.ID != "" {
		a.ID = given.ID
	}

	if given.Name != "" {
		a.Name = given.Name
	}

	a.Avatar = given.Avatar

	return &a
}

// exportTo writes threads to wc and closes it, reporting a failed close.
func exportTo(wc io.WriteCloser, threads comment.Threads, format string) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close export: %w", cerr)
		}
	}()

	return storage.Export(wc, threads, format)
}

// withService opens the configured store for the duration of fn.
// Reads are strict so a broken store is reported instead of printed as empty.
func (a *app) withService(fn func(*thread.Service) error) (err error) {
	store, err := storage.Open(a.cfg.Storage.Options())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	writer := thread.NewWriter(store, a.cfg.Comments.QueueSize)

	defer func() {
		if cerr := writer.Close(); cerr != nil && err == nil {
			err = cerr
		}

		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	svc := thread.NewService(thread.ServiceConfig{
		Store:       store,
		Writer:      writer,
		Logger:      a.logger,
		StrictReads: true,
	})

	return fn(svc)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
