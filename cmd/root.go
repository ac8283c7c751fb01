/*
Copyright © 2025 The taxsieve authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gnames/gn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/taxsieve/taxsieve/internal/iofs"
	"github.com/taxsieve/taxsieve/internal/iologger"
	app "github.com/taxsieve/taxsieve/pkg"
	"github.com/taxsieve/taxsieve/pkg/config"
)

var (
	homeDir string
	opts    []config.Option
	cfg     *config.Config
)

// getRootCmd returns the base command with all subcommands attached.
// Extracted as a function to facilitate testing and dynamic
// command registration.
func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Version: fmt.Sprintf("version: %s\nbuild:   %s", app.Version, app.Build),
		Use:     "taxsieve",
		Short:   "Screen annotated genome assemblies for contamination",
		Long: `taxsieve screens annotated genome assemblies for contamination.

For every contig the tool computes composition, gene and coverage
descriptors, assigns taxa to genes by aligning their proteins against
a reference protein database, and combines multivariate outlier
detection with taxonomic divergence to call contamination candidates.

A screening run is described by a YAML run document. A commented
template is written to the config directory on first start.

Workflow:
  1. Verify external tools with 'taxsieve check'
  2. Describe the run in a YAML document
     (template: run.example.yaml in the config directory)
  3. Validate the document and its inputs with 'taxsieve check <run.yaml>'
  4. Screen the assembly with 'taxsieve run <run.yaml>'
  5. Adjust display settings in the run document and refresh the
     output tables with 'taxsieve plots <run.yaml>'

Configuration precedence (highest to lowest):
  1. Environment variables (TAXSIEVE_*)
  2. Config file (config.yaml in the config directory)
  3. Built-in defaults`,
		PersistentPreRunE: bootstrap,
		RunE:              runRoot,
		SilenceErrors:     true,
		SilenceUsage:      true,
	}

	// Remove the automatic "taxsieve version" prefix
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Override version flag to use -V shorthand
	rootCmd.Flags().BoolP("version", "V", false, "version for taxsieve")

	rootCmd.AddCommand(getRunCmd())
	rootCmd.AddCommand(getPlotsCmd())
	rootCmd.AddCommand(getCheckCmd())

	return rootCmd
}

func bootstrap(cmd *cobra.Command, args []string) error {
	var err error
	homeDir, err = os.UserHomeDir()
	if err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureDirs(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	// Initialize logging with hardcoded defaults
	// Will be reconfigured later with user's config settings
	defaultLog := config.LogConfig{
		Format:      "json",
		Level:       "info",
		Destination: "file",
	}
	if err = iologger.Init(config.LogDir(homeDir), defaultLog, false); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureConfigFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	if err = iofs.EnsureRunExampleFile(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	gn.Info(
		"Configuration files are available at <em>%s</em>",
		config.ConfigDir(homeDir),
	)

	var cfgViper *config.Config
	if cfgViper, err = initConfig(homeDir); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	cfg = config.New()
	opts = cfgViper.ToOptions()
	cfg.Update(opts)

	// Set HomeDir after config is loaded
	cfg.Update([]config.Option{config.OptHomeDir(homeDir)})

	// Reconfigure logging with user's settings, appending to the
	// log file started during bootstrap
	if err = reconfigureLogging(cfg); err != nil {
		gn.PrintErrorMessage(err)
		return err
	}

	slog.Info("Configuration loaded", "config_file", config.ConfigFilePath(homeDir))

	return nil
}

// reconfigureLogging reinitializes the logger with the loaded configuration.
func reconfigureLogging(cfg *config.Config) error {
	logDir := config.LogDir(cfg.HomeDir)
	return iologger.Init(logDir, cfg.Log, true)
}

func runRoot(cmd *cobra.Command, args []string) error {
	versionFlag(cmd)
	return cmd.Help()
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	err := getRootCmd().Execute()
	if err != nil {
		os.Exit(1)
	}
}

func initConfig(home string) (*config.Config, error) {
	var err error
	cfgPath := config.ConfigFilePath(home)
	v := viper.New()
	v.SetConfigFile(cfgPath)

	initEnvVars(v)

	if err = v.ReadInConfig(); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	var res config.Config
	if err = v.Unmarshal(&res); err != nil {
		return nil, iofs.ReadFileError(cfgPath, err)
	}

	return &res, nil
}

func initEnvVars(v *viper.Viper) {
	// Set environment variables we want.
	// We set them manually so we can see clearly which env variables are allowed.
	// These match the fields included in config.ToOptions() - i.e., persistent
	// configuration that can be stored in config.yaml.
	v.SetEnvPrefix("TAXSIEVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// External tools
	v.BindEnv("tools.diamond", "TAXSIEVE_TOOLS_DIAMOND")
	v.BindEnv("tools.bowtie2", "TAXSIEVE_TOOLS_BOWTIE2")
	v.BindEnv("tools.bowtie2_build", "TAXSIEVE_TOOLS_BOWTIE2_BUILD")
	v.BindEnv("tools.samtools", "TAXSIEVE_TOOLS_SAMTOOLS")
	v.BindEnv("tools.bedtools", "TAXSIEVE_TOOLS_BEDTOOLS")

	// Aligner configuration
	v.BindEnv("aligner.sensitivity", "TAXSIEVE_ALIGNER_SENSITIVITY")
	v.BindEnv("aligner.evalue", "TAXSIEVE_ALIGNER_EVALUE")
	v.BindEnv("aligner.top_percent", "TAXSIEVE_ALIGNER_TOP_PERCENT")

	// Log configuration
	v.BindEnv("log.level", "TAXSIEVE_LOG_LEVEL")
	v.BindEnv("log.format", "TAXSIEVE_LOG_FORMAT")
	v.BindEnv("log.destination", "TAXSIEVE_LOG_DESTINATION")

	// General configuration
	v.BindEnv("jobs_number", "TAXSIEVE_JOBS_NUMBER")
	v.BindEnv("taxonomy_dir", "TAXSIEVE_TAXONOMY_DIR")

	v.AutomaticEnv()
}
