package main

import (
	"fmt"
	"io"

	"github.com/kroma-labs/sentinel-neo4j/config"
	"github.com/kroma-labs/sentinel-neo4j/internal/app"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// envPrefix prefixes environment overrides, e.g.
// FRIENDS_ConnectionStrings__neo4j.
const envPrefix = "FRIENDS_"

// cli holds the global flags and what PersistentPreRunE resolves from them.
type cli struct {
	configFile string
	logLevel   string
	logPretty  bool

	logOut io.Writer

	src    config.Source
	cfg    app.Config
	logger zerolog.Logger
}

func newRootCommand(logOut io.Writer) *cobra.Command {
	c := &cli{logOut: logOut}
	return c.rootCommand()
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "friendsapi",
		Short: "Person and friendship API backed by Neo4j",
		Long: `friendsapi serves a small person/KNOWS graph over HTTP.

Configuration is read from an optional YAML file, then from FRIENDS_
environment variables (":" becomes "__"), then from flags:

  FRIENDS_ConnectionStrings__neo4j="host=neo4j://localhost:7687;username=neo4j;password=secret"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configFile, "config", "c", "", "path to a YAML configuration file")
	flags.StringVar(&c.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&c.logPretty, "log-pretty", false, "human-readable console logs")

	root.AddCommand(newServeCommand(c), newSeedCommand(c))
	return root
}

// load resolves the configuration source, the typed configuration and the
// root logger.
func (c *cli) load(cmd *cobra.Command) error {
	var file config.Source
	if c.configFile != "" {
		m, err := config.LoadYAML(c.configFile)
		if err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
		file = m
	}

	overrides := config.Map{}
	if cmd.Flags().Changed("log-level") {
		overrides["Log:Level"] = c.logLevel
	}
	if cmd.Flags().Changed("log-pretty") {
		overrides["Log:Pretty"] = fmt.Sprint(c.logPretty)
	}

	c.src = config.Chain(file, config.Env(envPrefix), overrides)

	cfg, err := app.LoadConfig(c.src)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := app.NewLogger(cfg.Log, c.logOut)
	if err != nil {
		return err
	}
	c.logger = logger.With().Str("service", cfg.Service.Name).Logger()
	return nil
}
