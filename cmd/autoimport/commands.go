package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"autoimport/internal/core/app"
	"autoimport/internal/core/errors"
	"autoimport/internal/shared/observability"

	"github.com/spf13/cobra"
)

func newIndexCmd(c *cli) *cobra.Command {
	var (
		prefix   string
		exportDB string
		document string
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the declaration index and list its entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			start := time.Now()
			a, err := c.newApp(ctx, true)
			if err != nil {
				return c.fail(err)
			}
			defer a.Close()

			if document != "" {
				infos, err := a.Candidates(ctx, document)
				if err != nil {
					return c.fail(err)
				}
				fmt.Fprint(c.stdout, renderDeclarations(infos, prefix))
			} else {
				infos, err := a.Declarations(c.rootPath, prefix)
				if err != nil {
					return c.fail(err)
				}
				fmt.Fprint(c.stdout, renderDeclarations(infos, ""))
			}

			if exportDB != "" {
				meta, err := a.ExportIndex(ctx, c.rootPath, exportDB)
				if err != nil {
					return c.fail(err)
				}
				fmt.Fprintln(c.stdout, successStyle.Render(fmt.Sprintf("exported %d declarations to %s", meta.Declarations, exportDB)))
			}
			fmt.Fprintln(c.stdout, statusStyle.Render(fmt.Sprintf("indexed %s in %s", c.rootPath, time.Since(start).Round(time.Millisecond))))
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list declarations whose name starts with this prefix")
	cmd.Flags().StringVar(&exportDB, "export-db", "", "Write the declaration table to a SQLite database")
	cmd.Flags().StringVar(&document, "document", "", "List only declarations this document can still import")
	return cmd
}

func newOrganizeCmd(c *cli) *cobra.Command {
	var check, dryRun bool
	cmd := &cobra.Command{
		Use:   "organize <file>...",
		Short: "Remove unused imports, then sort and group the rest",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx, false)
			if err != nil {
				return c.fail(err)
			}
			defer a.Close()

			dirty := 0
			for _, path := range args {
				res, err := a.OrganizeFile(ctx, path, app.OrganizeOptions{DryRun: check || dryRun})
				if err != nil {
					return c.fail(err)
				}
				if res.Changed {
					dirty++
				}
				if check {
					fmt.Fprint(c.stdout, renderCheck(res))
					continue
				}
				fmt.Fprint(c.stdout, renderOrganize(res, dryRun))
			}
			if check && dirty > 0 {
				return c.fail(errors.New(errors.CodeValidationError, fmt.Sprintf("%d file(s) need organizing", dirty)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Exit non-zero when a file is not organized, without writing")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the organized text instead of writing it")
	return cmd
}

func newAddCmd(c *cli) *cobra.Command {
	var from, alias string
	cmd := &cobra.Command{
		Use:   "add <file> <name>",
		Short: "Import a declaration from the workspace index into a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.newApp(ctx, true)
			if err != nil {
				return c.fail(err)
			}
			defer a.Close()

			res, err := a.AddImport(ctx, app.AddImportRequest{Path: args[0], Name: args[1], From: from, Alias: alias})
			if err != nil {
				return c.fail(err)
			}
			fmt.Fprintln(c.stdout, successStyle.Render(fmt.Sprintf("imported %s from %s into %s", args[1], res.Library, filepath.Base(res.Path))))
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Library to import from when the name is ambiguous")
	cmd.Flags().StringVar(&alias, "alias", "", "Local name for the imported declaration")
	return cmd
}

func newWatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the index live and organize imports on save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			obs := c.cfg.Observability

			shutdown, err := observability.InitTracing(ctx, obs.OTLPEndpoint, obs.ServiceName)
			if err != nil {
				return c.fail(err)
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(sctx)
			}()

			a, err := c.newApp(ctx, false)
			if err != nil {
				return c.fail(err)
			}
			defer a.Close()
			// A failed first build is reported by /health and retried on change.
			if _, err := a.AddWorkspace(ctx, c.rootPath); err != nil {
				c.logger.Error("initial index build failed", "error", err)
			}

			if obs.MetricsAddress != "" {
				server := observability.NewServer(obs.MetricsAddress, a.Health)
				if err := server.Start(ctx); err != nil {
					return c.fail(err)
				}
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = server.Stop(sctx)
				}()
			}

			session, err := a.StartWatching(ctx, c.cfgFile)
			if err != nil {
				return c.fail(err)
			}
			defer session.Stop()

			fmt.Fprintln(c.stdout, titleStyle(fmt.Sprintf("watching %s", c.rootPath)))
			<-ctx.Done()
			return nil
		},
	}
}
