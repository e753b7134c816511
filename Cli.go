package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/reaandrew/gammakit/progress"
)

// DemoConfig mirrors the demo command flags; a YAML config file may supply
// any field a flag did not set.
type DemoConfig struct {
	Iterations  int  `yaml:"iterations"`
	Bars        int  `yaml:"bars"`
	Width       int  `yaml:"width"`
	NoRich      bool `yaml:"no_rich"`
	RequireRich bool `yaml:"require_rich"`
}

// Cli represents the command-line interface
type Cli struct {
	configPath string
	cfg        DemoConfig
}

// Execute sets up and runs the root command
func (cli *Cli) Execute() error {
	rootCmd := &cobra.Command{
		Use:   "gammakit",
		Short: "Gammakit provides console progress reporting and the HAWC likelihood plugin.",
	}

	rootCmd.AddCommand(cli.createDemoCommand())

	return rootCmd.Execute()
}

// createDemoCommand creates the 'demo' subcommand with its flags
func (cli *Cli) createDemoCommand() *cobra.Command {
	demoCmd := &cobra.Command{
		Use:     "demo",
		Short:   "Run a progress bar demonstration.",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.loadConfig(cmd)
			if err != nil {
				return err
			}
			return runDemo(cfg)
		},
	}

	demoCmd.Flags().IntVar(&cli.cfg.Iterations, "iterations", 200, "Number of iterations to simulate")
	demoCmd.Flags().IntVar(&cli.cfg.Bars, "bars", 1, "Number of bars to run")
	demoCmd.Flags().IntVar(&cli.cfg.Width, "width", 0, "Bar width in characters (0 = backend default)")
	demoCmd.Flags().BoolVar(&cli.cfg.NoRich, "no-rich", false, "Force the plain text backend")
	demoCmd.Flags().BoolVar(&cli.cfg.RequireRich, "require-rich", false, "Fail instead of downgrading to text (multi-bar only)")
	demoCmd.Flags().StringVar(&cli.configPath, "config", "", "YAML config file (flags take precedence)")

	return demoCmd
}

// loadConfig merges the optional config file under the flags: a field from
// the file applies only when its flag was left at the default.
func (cli *Cli) loadConfig(cmd *cobra.Command) (DemoConfig, error) {
	cfg := cli.cfg

	if cli.configPath == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(cli.configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", cli.configPath, err)
	}

	var fileCfg DemoConfig
	if err := yaml.Unmarshal(content, &fileCfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", cli.configPath, err)
	}

	if !cmd.Flags().Changed("iterations") && fileCfg.Iterations != 0 {
		cfg.Iterations = fileCfg.Iterations
	}
	if !cmd.Flags().Changed("bars") && fileCfg.Bars != 0 {
		cfg.Bars = fileCfg.Bars
	}
	if !cmd.Flags().Changed("width") && fileCfg.Width != 0 {
		cfg.Width = fileCfg.Width
	}
	if !cmd.Flags().Changed("no-rich") {
		cfg.NoRich = fileCfg.NoRich
	}
	if !cmd.Flags().Changed("require-rich") {
		cfg.RequireRich = fileCfg.RequireRich
	}

	return cfg, nil
}

func runDemo(cfg DemoConfig) error {
	opts := progress.Options{
		Width:       cfg.Width,
		DisableRich: cfg.NoRich,
	}

	if cfg.Bars <= 1 {
		err := progress.With(cfg.Iterations, opts, func(bar progress.Bar) error {
			for i := 1; i <= cfg.Iterations; i++ {
				time.Sleep(5 * time.Millisecond)
				bar.Advance(i)
			}
			return nil
		})
		fmt.Println()
		return err
	}

	run := func(bars []progress.Bar) error {
		for i := 1; i <= cfg.Iterations; i++ {
			time.Sleep(5 * time.Millisecond)
			for _, bar := range bars {
				bar.Advance(i)
			}
		}
		return nil
	}

	var err error
	if cfg.RequireRich {
		err = progress.WithRichBatch(cfg.Iterations, cfg.Bars, opts, run)
	} else {
		err = progress.WithBatch(cfg.Iterations, cfg.Bars, opts, run)
	}
	fmt.Println()
	return err
}
