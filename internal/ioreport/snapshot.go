package ioreport

import (
	"log/slog"
	"os"

	"github.com/gnames/gnfmt"

	"github.com/taxsieve/taxsieve/pkg/assign"
	"github.com/taxsieve/taxsieve/pkg/descriptors"
	"github.com/taxsieve/taxsieve/pkg/multivar"
)

// Taxon is one contig's resolved taxon inside a snapshot. Divergence
// counts query-lineage steps below the shared ancestor, -1 when the
// contig is unassigned.
type Taxon struct {
	ContigID   string
	TaxonID    int
	Name       string
	Divergence int
}

// Snapshot is the computed state of a finished run. plots mode decodes
// it and re-derives display labels without touching the heavy stages.
// Taxa and Analysis rows are aligned with Contigs.
type Snapshot struct {
	Fingerprint string
	Schema      descriptors.Schema
	Contigs     []descriptors.ContigResult
	Assignments map[string]assign.Assignment
	Taxa        []Taxon
	Analysis    *multivar.Result
}

// SaveSnapshot gob-encodes the snapshot into path.
func SaveSnapshot(path string, snap *Snapshot) error {
	enc := gnfmt.GNgob{}
	bs, err := enc.Encode(snap)
	if err != nil {
		return SnapshotWriteError(path, err)
	}
	if err = os.WriteFile(path, bs, 0644); err != nil {
		return SnapshotWriteError(path, err)
	}

	slog.Info("Snapshot written", "path", path, "contigs", len(snap.Contigs))
	return nil
}

// LoadSnapshot reads a snapshot back. A fingerprint differing from the
// given one means the run document drifted since the snapshot was made;
// that is reported as a warning, the snapshot still loads.
func LoadSnapshot(path, fingerprint string) (*Snapshot, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, SnapshotReadError(path, err)
	}

	var snap Snapshot
	enc := gnfmt.GNgob{}
	if err = enc.Decode(bs, &snap); err != nil {
		return nil, SnapshotReadError(path, err)
	}

	if fingerprint != "" && snap.Fingerprint != fingerprint {
		slog.Warn("Snapshot was made with different inputs",
			"path", path)
	}
	slog.Info("Snapshot loaded", "path", path, "contigs", len(snap.Contigs))
	return &snap, nil
}
