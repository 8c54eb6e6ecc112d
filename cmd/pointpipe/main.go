// Command pointpipe validates, inspects and catalogues point cloud
// pipeline descriptions.
package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/pointpipe/internal/config"
	"github.com/banshee-data/pointpipe/internal/drivers"
	"github.com/banshee-data/pointpipe/internal/fsutil"
	"github.com/banshee-data/pointpipe/internal/graphstore"
	"github.com/banshee-data/pointpipe/internal/pipeline"
	"github.com/banshee-data/pointpipe/internal/planefit"
	"github.com/banshee-data/pointpipe/internal/plugin"
	"github.com/banshee-data/pointpipe/internal/stage"
	"github.com/banshee-data/pointpipe/internal/version"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	configFile string
	stderr     io.Writer
	fs         fsutil.FileSystem

	cfg      *config.EngineConfig
	compiler *pipeline.Compiler
	plugins  *plugin.Registry
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	return newRootCmdFS(stdout, stderr, fsutil.OSFileSystem{})
}

// newRootCmdFS builds the command tree over fsys, which serves pipeline
// files, globs and XYZ point files.
func newRootCmdFS(stdout, stderr io.Writer, fsys fsutil.FileSystem) *cobra.Command {
	a := &app{stderr: stderr, fs: fsys}

	rootCmd := &cobra.Command{
		Use:   "pointpipe",
		Short: "Compile and inspect point cloud processing pipelines",
		Long: `pointpipe reads JSON or YAML pipeline descriptions, compiles them into
a stage graph and reports what would run. Compiled graphs can be saved to
and listed from a SQLite catalogue.`,
		Version:      version.String(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "path to engine config file (.json)")

	rootCmd.AddCommand(a.validateCmd())
	rootCmd.AddCommand(a.describeCmd())
	rootCmd.AddCommand(a.driversCmd())
	rootCmd.AddCommand(a.saveCmd())
	rootCmd.AddCommand(a.listCmd())
	rootCmd.AddCommand(a.showCmd())
	rootCmd.AddCommand(a.fitCmd())
	return rootCmd
}

// setup loads the engine config, wires log streams, builds the driver
// factory and preloads configured plugins.
func (a *app) setup() error {
	a.cfg = config.DefaultEngineConfig()
	if a.configFile != "" {
		cfg, err := config.LoadEngineConfig(a.configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		a.cfg = cfg
	}

	ops, diag, trace := a.streams()
	pipeline.SetLogWriters(ops, diag, trace)
	plugin.SetLogWriters(ops, diag, trace)
	stage.SetTraceWriter(trace)
	planefit.SetLogWriters(diag, trace)
	graphstore.SetLogWriter(diag)

	factory, err := drivers.NewFactory()
	if err != nil {
		return err
	}
	a.plugins = drivers.NewPluginRegistry(factory, nil)
	for _, name := range a.cfg.Plugins {
		if err := a.plugins.Load(name); err != nil {
			return err
		}
	}
	a.compiler = &pipeline.Compiler{
		Factory: factory,
		Plugins: a.plugins,
		FS:      a.fs,
		Log:     log.New(a.stderr, "", 0),
	}
	return nil
}

func (a *app) streams() (ops, diag, trace io.Writer) {
	if a.cfg.GetLogOps() {
		ops = a.stderr
	}
	if a.cfg.GetLogDiag() {
		diag = a.stderr
	}
	if a.cfg.GetLogTrace() {
		trace = a.stderr
	}
	return ops, diag, trace
}

// compile reads a pipeline file, or stdin when path is "-".
func (a *app) compile(cmd *cobra.Command, path string) (*stage.Manager, error) {
	if path == "-" {
		return a.compiler.Read(cmd.InOrStdin())
	}
	return a.compiler.ReadFile(path)
}
