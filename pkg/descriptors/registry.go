package descriptors

import (
	"fmt"
	"strconv"
	"strings"
)

// Scope tells whether a descriptor describes a contig or a single gene.
type Scope int

const (
	ScopeContig Scope = iota
	ScopeGene
)

func (s Scope) String() string {
	if s == ScopeGene {
		return "gene"
	}
	return "contig"
}

// Descriptor is one entry of the descriptor registry. PerSet descriptors
// exist once per coverage set and expand to suffixed columns (_1, _2, …)
// in schema order. Key descriptors carry the record identifier instead
// of a numeric value.
type Descriptor struct {
	Name   string
	Scope  Scope
	PerSet bool
	Key    bool
	Help   string
}

// Registry returns the full descriptor catalog in canonical order.
// input_variables entries are validated against this list.
func Registry() []Descriptor {
	return []Descriptor{
		{Name: "c_name", Scope: ScopeContig, Key: true, Help: "contig identifier"},
		{Name: "c_num_of_genes", Scope: ScopeContig, Help: "number of genes on the contig"},
		{Name: "c_len", Scope: ScopeContig, Help: "contig length in bases"},
		{Name: "c_pct_assembly_len", Scope: ScopeContig, Help: "contig share of total assembly length, percent"},
		{Name: "c_genelenm", Scope: ScopeContig, Help: "mean gene length on the contig"},
		{Name: "c_genelensd", Scope: ScopeContig, Help: "standard deviation of gene lengths on the contig"},
		{Name: "c_cov", Scope: ScopeContig, PerSet: true, Help: "mean per-base coverage of the contig"},
		{Name: "c_covsd", Scope: ScopeContig, PerSet: true, Help: "standard deviation of per-base contig coverage"},
		{Name: "c_covdev", Scope: ScopeContig, PerSet: true, Help: "contig coverage deviation from the assembly mean, in assembly SD units"},
		{Name: "c_genecovm", Scope: ScopeContig, PerSet: true, Help: "mean of the contig's gene coverages"},
		{Name: "c_genecovsd", Scope: ScopeContig, PerSet: true, Help: "standard deviation of the contig's gene coverages"},
		{Name: "c_pearson_r_o", Scope: ScopeContig, Help: "mean gene coverage-profile correlation against the assembly profile"},
		{Name: "c_pearson_r_c", Scope: ScopeContig, Help: "mean gene coverage-profile correlation against the contig profile"},
		{Name: "c_gc_cont", Scope: ScopeContig, Help: "contig GC fraction"},
		{Name: "c_gcdev", Scope: ScopeContig, Help: "contig GC deviation from the assembly mean, in SD units"},

		{Name: "g_name", Scope: ScopeGene, Key: true, Help: "gene identifier"},
		{Name: "g_len", Scope: ScopeGene, Help: "gene length in bases"},
		{Name: "g_lendev_c", Scope: ScopeGene, Help: "gene length deviation from the contig mean, in SD units"},
		{Name: "g_abspos", Scope: ScopeGene, Help: "relative position of the gene center on its contig"},
		{Name: "g_terminal", Scope: ScopeGene, Help: "1 when the gene is first or last on its contig"},
		{Name: "g_single", Scope: ScopeGene, Help: "1 when the gene is the only gene on its contig"},
		{Name: "g_cov", Scope: ScopeGene, PerSet: true, Help: "mean per-base coverage of the gene"},
		{Name: "g_covsd", Scope: ScopeGene, PerSet: true, Help: "standard deviation of per-base gene coverage"},
		{Name: "g_covdev_c", Scope: ScopeGene, PerSet: true, Help: "gene coverage deviation from its contig mean, in contig SD units"},
		{Name: "g_covdev_o", Scope: ScopeGene, PerSet: true, Help: "gene coverage deviation from the assembly mean, in assembly SD units"},
		{Name: "g_pearson_r_o", Scope: ScopeGene, Help: "coverage-profile correlation of the gene against the assembly, across coverage sets"},
		{Name: "g_pearson_r_c", Scope: ScopeGene, Help: "coverage-profile correlation of the gene against its contig, across coverage sets"},
		{Name: "g_gc_cont", Scope: ScopeGene, Help: "gene GC fraction"},
		{Name: "g_gcdev_c", Scope: ScopeGene, Help: "gene GC deviation from the contig's gene mean, in SD units"},
	}
}

// Column is one expanded schema column. Set is 0 for descriptors that do
// not depend on a coverage set, and 1-based otherwise.
type Column struct {
	Name  string
	Base  string
	Scope Scope
	Set   int
	Key   bool
}

// Schema is the ordered, expanded column list parsed from
// input_variables. It is the public contract of the descriptor table:
// rendered columns follow it exactly.
type Schema struct {
	Columns []Column
	Sets    int
}

// Names returns the expanded column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// HasScope reports whether any column of the given scope is present.
func (s Schema) HasScope(scope Scope) bool {
	for _, c := range s.Columns {
		if c.Scope == scope {
			return true
		}
	}
	return false
}

// NeedsCoverage reports whether any column depends on a coverage set.
func (s Schema) NeedsCoverage() bool {
	for _, c := range s.Columns {
		if c.Set > 0 || strings.Contains(c.Base, "pearson") {
			return true
		}
	}
	return false
}

// ParseInputVariables validates the requested descriptor names against
// the registry and expands per-set descriptors for numSets coverage
// sets, preserving request order. Names may be given as registry bases
// (c_cov) or with an explicit set suffix (c_cov_2); a suffix beyond
// numSets, an unknown name, or a duplicate column is a configuration
// error.
func ParseInputVariables(vars []string, numSets int) (Schema, error) {
	byName := make(map[string]Descriptor)
	for _, d := range Registry() {
		byName[d.Name] = d
	}

	s := Schema{Sets: numSets}
	seen := make(map[string]bool)

	add := func(col Column) error {
		if seen[col.Name] {
			return fmt.Errorf("duplicate descriptor %q", col.Name)
		}
		seen[col.Name] = true
		s.Columns = append(s.Columns, col)
		return nil
	}

	for _, raw := range vars {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}

		if d, ok := byName[name]; ok {
			if !d.PerSet {
				if err := add(Column{
					Name: d.Name, Base: d.Name, Scope: d.Scope, Key: d.Key,
				}); err != nil {
					return Schema{}, err
				}
				continue
			}
			if numSets == 0 {
				return Schema{}, fmt.Errorf(
					"descriptor %q needs a coverage set, but none is configured", name,
				)
			}
			for set := 1; set <= numSets; set++ {
				col := Column{
					Name:  fmt.Sprintf("%s_%d", d.Name, set),
					Base:  d.Name,
					Scope: d.Scope,
					Set:   set,
				}
				if err := add(col); err != nil {
					return Schema{}, err
				}
			}
			continue
		}

		// explicit set suffix, e.g. g_cov_2
		base, set, ok := splitSetSuffix(name)
		d, known := byName[base]
		if !ok || !known || !d.PerSet {
			return Schema{}, fmt.Errorf("unknown descriptor %q", name)
		}
		if set < 1 || set > numSets {
			return Schema{}, fmt.Errorf(
				"descriptor %q references coverage set %d, but %d set(s) are configured",
				name, set, numSets,
			)
		}
		if err := add(Column{
			Name: name, Base: base, Scope: d.Scope, Set: set,
		}); err != nil {
			return Schema{}, err
		}
	}

	if len(s.Columns) == 0 {
		return Schema{}, fmt.Errorf("input_variables selects no descriptors")
	}
	return s, nil
}

func splitSetSuffix(name string) (base string, set int, ok bool) {
	i := strings.LastIndex(name, "_")
	if i <= 0 || i == len(name)-1 {
		return "", 0, false
	}
	set, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return "", 0, false
	}
	return name[:i], set, true
}
