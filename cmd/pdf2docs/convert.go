package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/a3tai/pdf-rag-ingest/internal/config"
	"github.com/a3tai/pdf-rag-ingest/internal/document"
	"github.com/a3tai/pdf-rag-ingest/internal/ingest"
)

func convertCmd() *cobra.Command {
	var out string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Print the documents recovered from a file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFlagSet(cmd.Flags())
			if err != nil {
				return err
			}

			logOut := io.Discard
			if verbose {
				logOut = cmd.ErrOrStderr()
			}
			logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", path, err)
			}

			svc := ingest.NewFromConfig(cfg, logger)
			docs, err := svc.Process(cmd.Context(), ingest.Request{
				Filename:    filepath.Base(path),
				ContentType: mime.TypeByExtension(filepath.Ext(path)),
				Data:        data,
			})
			if err != nil {
				return err
			}

			if out == "" {
				return writeDocuments(cmd.OutOrStdout(), docs)
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := writeDocuments(f, docs); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("cannot write %s: %w", out, err)
			}
			return nil
		},
	}

	config.DefineFlags(cmd.Flags(), config.DefaultConfig())
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the documents to this file instead of stdout")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log pipeline progress to stderr")
	return cmd
}

// writeDocuments encodes docs as an indented JSON array; nil becomes [].
func writeDocuments(w io.Writer, docs []document.Document) error {
	if docs == nil {
		docs = []document.Document{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}
