// Package screen defines the run document: the per-run configuration
// describing one assembly screening, from input artifacts over resolver
// and analysis tunables to display options.
//
// A run document is a flat YAML file, one run per document. Coverage
// sources use suffix-indexed keys (pbc_path_1, bam_path_2, …), so the
// document carries any number of coverage sets next to its fixed keys.
package screen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gnames/gnuuid"
	"gopkg.in/yaml.v3"

	"github.com/taxsieve/taxsieve/pkg/assign"
	"github.com/taxsieve/taxsieve/pkg/multivar"
	"github.com/taxsieve/taxsieve/pkg/taxmerge"
)

// Defaults applied when the run document leaves a key unset.
const (
	DefaultOutputFormat  = "csv"
	DefaultSentinel      = "NA"
	DefaultGroupTarget   = 25
	DefaultMaxDivergence = 2
)

// PhaseMode selects how annotated CDS phases enter protein splicing.
type PhaseMode int

const (
	// PhaseAuto splices every gene both ways and keeps the variant set
	// scoring fewer penalties across the whole assembly.
	PhaseAuto PhaseMode = iota
	// PhaseAlways applies annotated phases unconditionally.
	PhaseAlways
	// PhaseNever ignores annotated phases.
	PhaseNever
)

// ParsePhaseMode maps the use_phase key to a mode. The empty string
// selects PhaseAuto.
func ParsePhaseMode(s string) (PhaseMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return PhaseAuto, nil
	case "always":
		return PhaseAlways, nil
	case "never":
		return PhaseNever, nil
	}
	return PhaseAuto, fmt.Errorf(
		"use_phase must be auto, always or never, got %q", s,
	)
}

// Config is one parsed run document.
type Config struct {
	// Required input artifacts.
	FastaPath    string `yaml:"fasta_path"`
	GFFPath      string `yaml:"gff_path"`
	OutputPath   string `yaml:"output_path"`
	TaxonID      int    `yaml:"taxon_id"`
	DatabasePath string `yaml:"database_path"`

	// Optional precomputed inputs. A hit table skips the aligner, a
	// protein FASTA skips extraction.
	ProteinsPath string `yaml:"proteins_path,omitempty"`
	HitTablePath string `yaml:"hit_table_path,omitempty"`

	// Taxonomy dump locations, overriding the tool-level taxonomy_dir.
	TaxdumpNodes string `yaml:"taxdump_nodes,omitempty"`
	TaxdumpNames string `yaml:"taxdump_names,omitempty"`

	// Behavior switches.
	TaxonExclude    *bool  `yaml:"taxon_exclude,omitempty"`
	AssignmentMode  string `yaml:"assignment_mode,omitempty"`
	ExtractProteins *bool  `yaml:"extract_proteins,omitempty"`
	UsePhase        string `yaml:"use_phase,omitempty"`
	UpdatePlots     bool   `yaml:"update_plots,omitempty"`

	// InputVariables is the ordered, comma-separated descriptor list;
	// empty selects the full registry.
	InputVariables string `yaml:"input_variables,omitempty"`

	// Resolver tunables.
	QuorumFraction      float64 `yaml:"quorum_fraction,omitempty"`
	ScoreCutoffFraction float64 `yaml:"score_cutoff_fraction,omitempty"`
	QuickScoreWindow    float64 `yaml:"quick_score_window,omitempty"`

	// Analysis tunables.
	ClusterMethod      string  `yaml:"cluster_method,omitempty"`
	PCAVarianceTarget  float64 `yaml:"pca_variance_target,omitempty"`
	DBSCANEpsilon      float64 `yaml:"dbscan_epsilon,omitempty"`
	DBSCANMinPts       int     `yaml:"dbscan_min_pts,omitempty"`
	GMMMaxComponents   int     `yaml:"gmm_max_components,omitempty"`
	Seed               int64   `yaml:"seed,omitempty"`
	MaxTaxonDivergence *int    `yaml:"max_taxon_divergence,omitempty"`

	// Display options.
	NumGroupsPlot  string   `yaml:"num_groups_plot,omitempty"`
	MergingLabels  []string `yaml:"merging_labels,omitempty"`
	MergeRankFloor string   `yaml:"merge_rank_floor,omitempty"`
	OutputFormat   string   `yaml:"output_format,omitempty"`
	Sentinel       string   `yaml:"sentinel,omitempty"`

	// Coverage holds the suffix-indexed coverage sets, ordered by
	// index starting at 1.
	Coverage []CoverageSet `yaml:"-"`
}

// UnmarshalYAML decodes the fixed keys and collects the suffix-indexed
// coverage keys from the same flat document.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type plain Config
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}

	var raw map[string]yaml.Node
	if err := value.Decode(&raw); err != nil {
		return err
	}
	cov, err := parseCoverageKeys(raw)
	if err != nil {
		return err
	}

	*c = Config(p)
	c.Coverage = cov
	return nil
}

// Validate checks the document's internal consistency. It does not
// touch the filesystem; artifact existence is checked by the pipeline.
func (c *Config) Validate() error {
	var missing []string
	for _, f := range []struct{ key, val string }{
		{"fasta_path", c.FastaPath},
		{"gff_path", c.GFFPath},
		{"output_path", c.OutputPath},
		{"database_path", c.DatabasePath},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.key)
		}
	}
	if c.TaxonID <= 0 {
		missing = append(missing, "taxon_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required keys: %s", strings.Join(missing, ", "))
	}

	if c.AssignmentMode != "" {
		if _, err := assign.ParseMode(c.AssignmentMode); err != nil {
			return err
		}
	}
	if c.ClusterMethod != "" {
		if _, err := multivar.ParseMethod(c.ClusterMethod); err != nil {
			return err
		}
	}
	if _, err := ParsePhaseMode(c.UsePhase); err != nil {
		return err
	}
	switch c.OutputFormat {
	case "", "csv", "tsv":
	default:
		return fmt.Errorf("output_format must be csv or tsv, got %q", c.OutputFormat)
	}

	if _, _, err := c.GroupTarget(); err != nil {
		return err
	}

	for _, f := range []struct {
		key string
		val float64
	}{
		{"quorum_fraction", c.QuorumFraction},
		{"score_cutoff_fraction", c.ScoreCutoffFraction},
		{"quick_score_window", c.QuickScoreWindow},
		{"pca_variance_target", c.PCAVarianceTarget},
	} {
		if f.val < 0 || f.val > 1 {
			return fmt.Errorf("%s must lie in (0,1], got %v", f.key, f.val)
		}
	}
	if c.MaxTaxonDivergence != nil && *c.MaxTaxonDivergence < 0 {
		return fmt.Errorf("max_taxon_divergence must not be negative")
	}

	for _, set := range c.Coverage {
		if err := set.validate(); err != nil {
			return err
		}
	}
	return nil
}

// TaxonExcluded reports whether hits inside the query lineage are
// dropped before resolution. Defaults to true.
func (c *Config) TaxonExcluded() bool {
	return c.TaxonExclude == nil || *c.TaxonExclude
}

// ShouldExtractProteins reports whether gene proteins are extracted
// from the assembly. Defaults to true unless a protein FASTA is given.
func (c *Config) ShouldExtractProteins() bool {
	if c.ExtractProteins != nil {
		return *c.ExtractProteins
	}
	return c.ProteinsPath == ""
}

// Phase returns the CDS phase policy for protein extraction.
func (c *Config) Phase() PhaseMode {
	mode, _ := ParsePhaseMode(c.UsePhase)
	return mode
}

// Variables returns the trimmed input_variables list. When the key is
// unset the default schema adapts to the document: the full registry
// order with coverage sets, the coverage-free subset without them.
func (c *Config) Variables() []string {
	if strings.TrimSpace(c.InputVariables) == "" {
		if len(c.Coverage) == 0 {
			return CoverageFreeInputVariables()
		}
		return DefaultInputVariables()
	}
	parts := strings.Split(c.InputVariables, ",")
	vars := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			vars = append(vars, v)
		}
	}
	return vars
}

// GroupTarget parses num_groups_plot: a positive integer target, or
// all=true for the literal "all". Unset falls back to the default
// target.
func (c *Config) GroupTarget() (target int, all bool, err error) {
	s := strings.TrimSpace(c.NumGroupsPlot)
	switch s {
	case "":
		return DefaultGroupTarget, false, nil
	case "all":
		return 0, true, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false, fmt.Errorf(
			"num_groups_plot must be a positive integer or \"all\", got %q", s,
		)
	}
	return n, false, nil
}

// Format returns the table format, csv by default.
func (c *Config) Format() string {
	if c.OutputFormat == "" {
		return DefaultOutputFormat
	}
	return c.OutputFormat
}

// SentinelString returns the textual form of not-computable values in
// rendered tables.
func (c *Config) SentinelString() string {
	if c.Sentinel == "" {
		return DefaultSentinel
	}
	return c.Sentinel
}

// MaxDivergence returns the taxonomic distance beyond which an outlier
// contig counts as a contamination candidate.
func (c *Config) MaxDivergence() int {
	if c.MaxTaxonDivergence == nil {
		return DefaultMaxDivergence
	}
	return *c.MaxTaxonDivergence
}

// AssignOptions builds the resolver options for the query taxon.
func (c *Config) AssignOptions() assign.Options {
	mode, _ := assign.ParseMode(c.AssignmentMode)
	opt := assign.Options{
		Mode:           mode,
		CutoffFraction: c.ScoreCutoffFraction,
		Quorum:         c.QuorumFraction,
		ScoreWindow:    c.QuickScoreWindow,
	}
	if c.TaxonExcluded() {
		opt.ExcludeTaxon = c.TaxonID
	}
	return opt
}

// AnalysisOptions builds the multivariate stage options.
func (c *Config) AnalysisOptions() multivar.Options {
	method, _ := multivar.ParseMethod(c.ClusterMethod)
	return multivar.Options{
		Method:         method,
		VarianceTarget: c.PCAVarianceTarget,
		Epsilon:        c.DBSCANEpsilon,
		MinPts:         c.DBSCANMinPts,
		MaxComponents:  c.GMMMaxComponents,
		Seed:           c.Seed,
	}
}

// MergeOptions builds the display merge options.
func (c *Config) MergeOptions() taxmerge.Options {
	target, all, _ := c.GroupTarget()
	return taxmerge.Options{
		Target:     target,
		All:        all,
		RankFloor:  c.MergeRankFloor,
		Directives: c.MergingLabels,
	}
}

// Fingerprint derives a stable identifier from the inputs that shape
// descriptor and assignment computation. plots mode compares it against
// the stored snapshot to spot configuration drift.
func (c *Config) Fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d|%s|%s|%s",
		c.FastaPath, c.GFFPath, c.TaxonID, c.DatabasePath,
		c.AssignmentMode, strings.Join(c.Variables(), ","),
	)
	for _, set := range c.Coverage {
		fmt.Fprintf(&b, "|%d:%s:%s:%s",
			set.Index, set.PBCPath, set.BAMPath,
			strings.Join(set.ReadPaths, ","),
		)
	}
	return gnuuid.New(b.String()).String()
}

// DefaultInputVariables returns the registry bases in canonical order,
// the schema used when input_variables is unset and coverage sets are
// configured.
func DefaultInputVariables() []string {
	return []string{
		"c_name", "c_num_of_genes", "c_len", "c_pct_assembly_len",
		"c_genelenm", "c_genelensd",
		"c_cov", "c_covsd", "c_covdev", "c_genecovm", "c_genecovsd",
		"c_pearson_r_o", "c_pearson_r_c", "c_gc_cont", "c_gcdev",
		"g_name", "g_len", "g_lendev_c", "g_abspos", "g_terminal", "g_single",
		"g_cov", "g_covsd", "g_covdev_c", "g_covdev_o",
		"g_pearson_r_o", "g_pearson_r_c", "g_gc_cont", "g_gcdev_c",
	}
}

// CoverageFreeInputVariables returns the default schema of runs without
// coverage sets: the registry order minus every coverage-derived
// descriptor.
func CoverageFreeInputVariables() []string {
	return []string{
		"c_name", "c_num_of_genes", "c_len", "c_pct_assembly_len",
		"c_genelenm", "c_genelensd", "c_gc_cont", "c_gcdev",
		"g_name", "g_len", "g_lendev_c", "g_abspos", "g_terminal", "g_single",
		"g_gc_cont", "g_gcdev_c",
	}
}
