package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	ext_config "github.com/wheelsmith/wheelsmith/config"
	"github.com/wheelsmith/wheelsmith/internal/config"
	"github.com/wheelsmith/wheelsmith/internal/logging"
	"github.com/wheelsmith/wheelsmith/internal/settings"
	"github.com/wheelsmith/wheelsmith/internal/tags"
	"github.com/wheelsmith/wheelsmith/internal/version"
	"github.com/wheelsmith/wheelsmith/internal/wheel"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbosity int

	root := &cobra.Command{
		Use:           "wheelsmith",
		Short:         "Build Python wheels from a project source tree",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")

	root.AddCommand(newBuildCmd(&verbosity))
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newBuildCmd(verbosity *int) *cobra.Command {
	var (
		directory     string
		settingsFile  string
		editable      bool
		pythonVersion string
	)

	cmd := &cobra.Command{
		Use:   "build [project root]",
		Short: "Build a wheel for the project at the given root",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectRoot := "."
			if len(args) == 1 {
				projectRoot = args[0]
			}
			return runBuild(cmd.Flags(), buildParams{
				root:          projectRoot,
				directory:     directory,
				settingsFile:  settingsFile,
				editable:      editable,
				pythonVersion: pythonVersion,
				verbosity:     *verbosity,
			})
		},
	}

	cmd.Flags().StringVarP(&directory, "directory", "d", "", "output directory for built artifacts")
	cmd.Flags().StringVarP(&settingsFile, "settings", "s", "", "path to a build settings file")
	cmd.Flags().BoolVar(&editable, "editable", false, "build an editable wheel")
	cmd.Flags().StringVar(&pythonVersion, "python-version", "", "CPython version assumed for inferred tags")
	return cmd
}

type buildParams struct {
	root          string
	directory     string
	settingsFile  string
	editable      bool
	pythonVersion string
	verbosity     int
}

func runBuild(flags *pflag.FlagSet, params buildParams) error {
	log := logging.NewLogger(logging.Config{Level: logging.LevelInfo + params.verbosity})

	s := settings.Default()
	if params.settingsFile != "" {
		var err error
		s, err = settings.ParseFile(params.settingsFile)
		if err != nil {
			return err
		}
	}

	// Command line flags win over the settings file.
	if flags.Changed("directory") {
		s.Directory = params.directory
	}
	if flags.Changed("python-version") {
		s.PythonVersion = params.pythonVersion
	}
	if params.editable {
		s.Targets = []string{"editable"}
	}

	cfg, err := config.Load(params.root)
	if err != nil {
		return err
	}

	outputDir := s.Directory
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(params.root, outputDir)
	}

	builder := wheel.NewBuilder(wheel.NewConfig(cfg), cfg.Metadata).
		WithLogger(log).
		WithEnvironment(tags.ReadEnvironment().WithPythonVersion(s.PythonVersion)).
		WithReproducible(s.Reproducible)

	for _, target := range s.Targets {
		var artifact string
		var err error
		switch target {
		case "editable":
			artifact, err = builder.BuildEditable(outputDir)
		default:
			artifact, err = builder.Build(outputDir)
		}
		if err != nil {
			return err
		}
		fmt.Println(artifact)
	}
	return nil
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema for the build settings file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(ext_config.Schema())
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the wheelsmith version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Version)
		},
	}
}
