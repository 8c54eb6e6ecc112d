package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/pointpipe/internal/graphstore"
	"github.com/banshee-data/pointpipe/internal/pipeline"
	"github.com/banshee-data/pointpipe/internal/planefit"
	"github.com/banshee-data/pointpipe/internal/pointset"
)

func (a *app) validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Compile a pipeline and report errors",
		Long: `Compiles the pipeline in FILE (or stdin for "-") without running it.
Multiple leaf stages are reported as a warning on stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.compile(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d stages, %d leaves\n", m.Len(), len(m.Leaves()))
			return nil
		},
	}
}

func (a *app) describeCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "describe FILE",
		Short: "Print the compiled stage graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.compile(cmd, args[0])
			if err != nil {
				return err
			}
			return writeDescription(cmd.OutOrStdout(), pipeline.Describe(m), format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}

func writeDescription(w io.Writer, desc pipeline.GraphDescription, format string) error {
	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(desc, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(desc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q (want json or yaml)", format)
}

func (a *app) driversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List stage types and bundled plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range a.compiler.Factory.Names() {
				d, _ := a.compiler.Factory.Lookup(name)
				fmt.Fprintf(out, "%-24s %s\n", name, d.Description)
			}
			fmt.Fprintf(out, "\nplugins: %s\n", strings.Join(a.plugins.Available(), ", "))
			return nil
		},
	}
}

// openStore opens the catalogue, defaulting to the configured path. Only
// save may create a new catalogue.
func (a *app) openStore(dbPath string, create bool) (*graphstore.Store, error) {
	if dbPath == "" {
		dbPath = a.cfg.GetCatalogPath()
	}
	if !create && !a.fs.Exists(dbPath) {
		return nil, fmt.Errorf("catalogue %s does not exist", dbPath)
	}
	return graphstore.Open(dbPath)
}

func (a *app) saveCmd() *cobra.Command {
	var dbPath, name string
	cmd := &cobra.Command{
		Use:   "save FILE",
		Short: "Compile a pipeline and store it in the catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.compile(cmd, args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			store, err := a.openStore(dbPath, true)
			if err != nil {
				return err
			}
			defer store.Close()

			uid, err := store.Save(cmd.Context(), name, pipeline.Describe(m))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), uid)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "catalogue database path (default from config)")
	cmd.Flags().StringVar(&name, "name", "", "catalogue name (default: file name)")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogued pipelines, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(dbPath, false)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "UID\tNAME\tSTAGES\tLEAVES\tCREATED")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", e.UID, e.Name, e.Stages, e.Leaves, e.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "catalogue database path (default from config)")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var dbPath, format string
	cmd := &cobra.Command{
		Use:   "show UID",
		Short: "Print a catalogued pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(dbPath, false)
			if err != nil {
				return err
			}
			defer store.Close()

			desc, _, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeDescription(cmd.OutOrStdout(), desc, format)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "catalogue database path (default from config)")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}

func (a *app) fitCmd() *cobra.Command {
	var knn, threads int
	cmd := &cobra.Command{
		Use:   "fit INPUT OUTPUT",
		Short: "Score XYZ text points by distance to their local plane",
		Long: `Reads whitespace- or comma-separated X Y Z rows from INPUT, computes the
PlaneFit score of every point and writes X Y Z PlaneFit rows to OUTPUT
("-" for stdout).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.GetPlaneFit()
			if cmd.Flags().Changed("knn") {
				cfg.KNN = knn
			}
			if cmd.Flags().Changed("threads") {
				cfg.Threads = threads
			}
			f, err := planefit.New(cfg)
			if err != nil {
				return err
			}

			pts, err := a.readXYZ(args[0])
			if err != nil {
				return err
			}
			tbl := pointset.NewTable(pts)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			res, err := f.Run(ctx, tbl, pointset.NewKDIndex(tbl))
			if err != nil {
				return err
			}
			if res.Degraded > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d of %d points had too few neighbours and scored 0\n", res.Degraded, res.Points)
			}
			if res.Unsolved > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d of %d points had no plane solution and scored 0\n", res.Unsolved, res.Points)
			}
			return a.writeXYZ(cmd, args[1], tbl)
		},
	}
	cmd.Flags().IntVar(&knn, "knn", planefit.DefaultKNN, "neighbours per point (default from config)")
	cmd.Flags().IntVar(&threads, "threads", planefit.DefaultThreads, "worker count (default from config)")
	return cmd
}
