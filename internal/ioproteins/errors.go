package ioproteins

import (
	"fmt"

	"github.com/gnames/gn"

	"github.com/taxsieve/taxsieve/pkg/errcode"
)

// UnknownContigError happens when a gene model points at a contig that
// does not exist in the assembly.
func UnknownContigError(geneID, contigID string) error {
	return &gn.Error{
		Code: errcode.ProteinExtractionError,
		Msg: fmt.Sprintf(
			"Gene <em>%s</em> is placed on contig <em>%s</em>, "+
				"but the assembly has no such contig",
			geneID, contigID,
		),
		Vars: []string{geneID, contigID},
		Err: fmt.Errorf(
			"ioproteins: unknown contig %q for gene %q", contigID, geneID,
		),
	}
}

// WriteError happens when the protein FASTA file cannot be written.
func WriteError(path string, err error) error {
	return &gn.Error{
		Code: errcode.ProteinExtractionError,
		Msg: fmt.Sprintf(
			"Cannot write protein sequences to <em>%s</em>", path,
		),
		Vars: []string{path},
		Err:  err,
	}
}
