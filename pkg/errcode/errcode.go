package errcode

import (
	"github.com/gnames/gn"
)

const (
	UnknownError gn.ErrorCode = iota

	// File System errors
	CreateDirError
	CopyFileError
	ReadFileError

	// Logging errors
	CreateLogFileError

	// Run document errors
	RunDocReadError
	RunDocParseError
	RunDocValidationError
	RunDocVariablesError

	// Taxonomy errors
	TaxonomyDumpError
	TaxonomyMalformedError
	TaxonomyUnknownTaxonError
	TaxonomyCacheError

	// Input artifact errors
	AssemblyReadError
	AnnotationReadError
	CoverageReadError
	ProteinExtractionError

	// External tool errors
	ToolNotFoundError
	ToolExecError
	AlignerParseError

	// Screening errors
	ScreenDescriptorError
	ScreenAnalysisError
	ScreenInsufficientDataError
	ScreenReportError
	ScreenSnapshotError
)
