package ioscreen

import (
	"fmt"

	"github.com/gnames/gn"

	"github.com/taxsieve/taxsieve/pkg/errcode"
)

// RunReadError happens when the run document cannot be read.
func RunReadError(path string, err error) error {
	return &gn.Error{
		Code: errcode.RunDocReadError,
		Msg:  fmt.Sprintf("Cannot read run document <em>%s</em>", path),
		Vars: []string{path},
		Err:  err,
	}
}

// RunParseError happens when the run document is not valid YAML.
func RunParseError(path string, err error) error {
	return &gn.Error{
		Code: errcode.RunDocParseError,
		Msg:  fmt.Sprintf("Cannot parse run document <em>%s</em>", path),
		Vars: []string{path},
		Err:  err,
	}
}

// RunInvalidError happens when the run document misses required keys
// or carries inconsistent values.
func RunInvalidError(path string, err error) error {
	return &gn.Error{
		Code: errcode.RunDocValidationError,
		Msg: fmt.Sprintf(
			"Run document <em>%s</em> is not valid: %v", path, err,
		),
		Vars: []string{path},
		Err:  err,
	}
}

// VariablesError happens when input_variables names unknown or
// unusable descriptors.
func VariablesError(err error) error {
	return &gn.Error{
		Code: errcode.RunDocVariablesError,
		Msg:  fmt.Sprintf("Cannot use input_variables: %v", err),
		Err:  err,
	}
}

// MissingInputError happens when a configured input artifact does not
// exist.
func MissingInputError(path string, err error) error {
	return &gn.Error{
		Code: errcode.ReadFileError,
		Msg:  fmt.Sprintf("Cannot find input artifact <em>%s</em>", path),
		Vars: []string{path},
		Err:  err,
	}
}

// UnknownTaxonError happens when the run's taxon_id is absent from the
// taxonomy.
func UnknownTaxonError(id int) error {
	return &gn.Error{
		Code: errcode.TaxonomyUnknownTaxonError,
		Msg: fmt.Sprintf(
			"Taxon <em>%d</em> is not in the taxonomy, "+
				"check taxon_id and the taxdump files", id,
		),
		Vars: []string{fmt.Sprintf("%d", id)},
		Err:  fmt.Errorf("ioscreen: unknown taxon %d", id),
	}
}

// NoProteinSourceError happens when extraction is disabled but no
// protein FASTA or hit table is provided.
func NoProteinSourceError() error {
	return &gn.Error{
		Code: errcode.RunDocValidationError,
		Msg: "extract_proteins is FALSE, but neither " +
			"<em>proteins_path</em> nor <em>hit_table_path</em> is set",
		Err: fmt.Errorf("ioscreen: no protein source"),
	}
}

// ResolveError happens when gene hits cannot be resolved against the
// taxonomy.
func ResolveError(err error) error {
	return &gn.Error{
		Code: errcode.TaxonomyUnknownTaxonError,
		Msg:  "Cannot resolve gene taxa against the taxonomy",
		Err:  err,
	}
}

// DescriptorError happens when the descriptor stage fails.
func DescriptorError(err error) error {
	return &gn.Error{
		Code: errcode.ScreenDescriptorError,
		Msg:  "Cannot compute contig descriptors",
		Err:  err,
	}
}

// AnalysisError happens when the multivariate stage fails for reasons
// other than insufficient data.
func AnalysisError(err error) error {
	return &gn.Error{
		Code: errcode.ScreenAnalysisError,
		Msg:  fmt.Sprintf("Multivariate analysis failed: %v", err),
		Err:  err,
	}
}

// MergeError happens when display groups cannot be built, usually a
// merging_labels directive naming an unknown taxon.
func MergeError(err error) error {
	return &gn.Error{
		Code: errcode.RunDocValidationError,
		Msg:  fmt.Sprintf("Cannot build display groups: %v", err),
		Err:  err,
	}
}
