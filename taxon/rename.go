package taxon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/braddmg/genflow/utils"
	"github.com/samber/lo"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"
)

// RenamedExt is the extension given to renamed genome files.
const RenamedExt = ".fasta"

// ErrEmptyToken is recorded when a metadata record sanitizes to nothing.
var ErrEmptyToken = errors.New("metadata record gives an empty name")

// SequenceFileRecord follows one downloaded genome file through renaming.
type SequenceFileRecord struct {
	Original string
	Term     string
	Response string
	Token    string
	// Final is the file name after renaming, or Original when the file
	// kept its name.
	Final string
	Err   error
}

// Renamed reports whether the file was given a taxon name.
func (r SequenceFileRecord) Renamed() bool {
	return r.Err == nil && r.Final != r.Original
}

// Renamer renames the downloaded genome files of a directory.
type Renamer struct {
	Lookup Lookuper
	// Workers bounds the number of concurrent lookups.
	Workers int
	Logger  *slog.Logger
}

func (r Renamer) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Rename looks up every .fna file of dir and renames it to
// <sanitized record>.fasta. A failed lookup only affects its own file,
// which keeps its original name. Names already used in the batch or on disk
// get a _2, _3, ... suffix; files are handled in name order so the outcome
// is deterministic. A file identical to an existing <token>.fasta, as left by
// an earlier run in the same directory, is removed instead of renamed.
// Records are returned in the same order.
func (r Renamer) Rename(ctx context.Context, dir string) ([]SequenceFileRecord, error) {
	names, err := utils.ListFiles(dir, ".fna")
	if err != nil {
		return nil, err
	}
	records := make([]SequenceFileRecord, len(names))
	for i, name := range names {
		records[i] = SequenceFileRecord{Original: name, Term: LookupTerm(name), Final: name}
	}

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range records {
		rec := &records[i]
		g.Go(func() error {
			resp, err := r.Lookup.Lookup(gctx, rec.Term)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				rec.Err = err
				return nil
			}
			rec.Response = resp
			rec.Token = Sanitize(resp)
			if rec.Token == "" {
				rec.Err = ErrEmptyToken
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return records, err
	}

	log := r.logger()
	claimed := make(map[string][]string)
	for i := range records {
		rec := &records[i]
		if rec.Err != nil {
			log.Warn("Error processing "+rec.Original, "STEP", "rename", "GENOME", rec.Original, "TERM", rec.Term, "error", rec.Err)
			continue
		}
		if _, ok := claimed[rec.Token]; !ok {
			same, err := utils.SameContent(filepath.Join(dir, rec.Original), filepath.Join(dir, rec.Token+RenamedExt))
			if err != nil {
				return records, err
			}
			if same {
				// Downloaded again on a rerun; keep the earlier copy.
				if err := os.Remove(filepath.Join(dir, rec.Original)); err != nil {
					return records, err
				}
				claimed[rec.Token] = append(claimed[rec.Token], rec.Original)
				rec.Final = rec.Token + RenamedExt
				log.Info("Genome already renamed", "STEP", "rename", "GENOME", rec.Final, "FROM", rec.Original)
				continue
			}
		}
		base := uniqueName(dir, rec.Token, claimed)
		claimed[rec.Token] = append(claimed[rec.Token], rec.Original)
		final := base + RenamedExt
		if err := os.Rename(filepath.Join(dir, rec.Original), filepath.Join(dir, final)); err != nil {
			return records, fmt.Errorf("renaming %s to %s: %w", rec.Original, final, err)
		}
		rec.Final = final
		log.Debug("Renamed genome", "STEP", "rename", "GENOME", final, "FROM", rec.Original)
	}

	tokens := maps.Keys(claimed)
	slices.Sort(tokens)
	for _, token := range tokens {
		if files := claimed[token]; len(files) > 1 {
			log.Warn("Several genomes share a taxon name; suffixes added", "STEP", "rename", "TOKEN", token, "FILES", strings.Join(files, ","))
		}
	}
	return records, nil
}

// uniqueName returns token, or token_N for the smallest N >= 2, such that
// the name is neither claimed in this batch nor present in dir.
func uniqueName(dir, token string, claimed map[string][]string) string {
	taken := func(name string) bool {
		if _, ok := claimed[name]; ok {
			return true
		}
		_, err := os.Stat(filepath.Join(dir, name+RenamedExt))
		return err == nil
	}
	name := token
	for n := 2; taken(name); n++ {
		name = fmt.Sprintf("%s_%d", token, n)
	}
	if name != token {
		// Reserve the suffixed name so a later token equal to it is pushed on.
		claimed[name] = nil
	}
	return name
}

// Summary counts renamed and skipped files.
func Summary(records []SequenceFileRecord) (renamed, skipped int) {
	renamed = lo.CountBy(records, func(r SequenceFileRecord) bool { return r.Renamed() })
	skipped = lo.CountBy(records, func(r SequenceFileRecord) bool { return r.Err != nil })
	return renamed, skipped
}
