package taxon

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/biogo/ncbi/entrez"
	"github.com/biogo/ncbi/entrez/summary"
	"github.com/braddmg/genflow/config"
	"github.com/braddmg/genflow/utils"
)

// Lookuper resolves an assembly accession to a tab separated
// "organism, strain, accession" record.
type Lookuper interface {
	Lookup(ctx context.Context, term string) (string, error)
}

// ErrNoRecord is returned when NCBI knows nothing about a term.
var ErrNoRecord = errors.New("no assembly record found")

// AmbiguousError is returned when a term matches more than one assembly.
type AmbiguousError struct {
	Term    string
	Records []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%d assembly records match %s: %s", len(e.Records), e.Term, strings.Join(e.Records, "; "))
}

// singleRecord returns the only non-blank line of out.
func singleRecord(term, out string) (string, error) {
	var records []string
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) != "" {
			records = append(records, strings.TrimRight(line, "\r"))
		}
	}
	switch len(records) {
	case 0:
		return "", ErrNoRecord
	case 1:
		return records[0], nil
	default:
		return "", &AmbiguousError{Term: term, Records: records}
	}
}

// Edirect queries NCBI with the Entrez Direct programs, piping
// esearch | esummary | xtract without a shell.
type Edirect struct {
	Runner   utils.Runner
	Esearch  string
	Esummary string
	Xtract   string
}

func (e Edirect) Lookup(ctx context.Context, term string) (string, error) {
	out, err := e.Runner.Output(ctx,
		utils.Command{Name: e.Esearch, Args: []string{"-db", "assembly", "-query", term}},
		utils.Command{Name: e.Esummary},
		utils.Command{Name: e.Xtract, Args: []string{"-pattern", "DocumentSummary", "-element", "Organism,Strain,AssemblyAccession"}},
	)
	if err != nil {
		return "", err
	}
	return singleRecord(term, string(out))
}

// Entrez queries the E-utilities web service directly.
type Entrez struct {
	Tool  string
	Email string
	// Interval is the minimum spacing between requests; NCBI allows three
	// per second without an API key.
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

const assemblyDB = "assembly"

var summaryFields = []string{"Organism", "Strain", "AssemblyAccession"}

func (e *Entrez) wait(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d := e.Interval - time.Since(e.last); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	e.last = time.Now()
	return nil
}

func (e *Entrez) Lookup(ctx context.Context, term string) (string, error) {
	if err := e.wait(ctx); err != nil {
		return "", err
	}
	h := entrez.History{}
	s, err := entrez.DoSearch(assemblyDB, term, nil, &h, e.Tool, e.Email)
	if err != nil {
		return "", fmt.Errorf("esearch %s: %w", term, err)
	}
	switch len(s.IdList) {
	case 0:
		return "", ErrNoRecord
	case 1:
	default:
		ids := make([]string, len(s.IdList))
		for i, id := range s.IdList {
			ids[i] = strconv.Itoa(id)
		}
		return "", &AmbiguousError{Term: term, Records: ids}
	}

	if err := e.wait(ctx); err != nil {
		return "", err
	}
	sum, err := entrez.DoSummary(assemblyDB, nil, e.Tool, e.Email, nil, s.IdList...)
	if err != nil {
		return "", fmt.Errorf("esummary %s: %w", term, err)
	}
	if len(sum.Documents) == 0 {
		return "", ErrNoRecord
	}
	return summaryRecord(sum.Documents[0].Items), nil
}

// summaryRecord joins the requested fields of a document summary with tabs.
// The summary parser keeps top-level items only: structured items such as
// Biosource come back without their children, so the infraspecific strain
// is not available here. For assembly records Organism already carries the
// strain in most cases, e.g. "Escherichia coli str. K-12 substr. MG1655".
func summaryRecord(items []summary.Item) string {
	found := make(map[string]string)
	for _, it := range items {
		if _, ok := found[it.Name]; !ok && strings.TrimSpace(it.Value) != "" {
			found[it.Name] = strings.TrimSpace(it.Value)
		}
	}

	var fields []string
	for _, name := range summaryFields {
		if v := found[name]; v != "" {
			fields = append(fields, v)
		}
	}
	return strings.Join(fields, "\t")
}

// NewLookuper returns the lookup backend selected by cfg.
func NewLookuper(cfg config.RunConfiguration, runner utils.Runner) Lookuper {
	if cfg.Lookup == config.LookupEntrez {
		return &Entrez{Tool: "genflow", Email: cfg.Email, Interval: time.Second / 3}
	}
	t := cfg.Tools
	return Edirect{Runner: runner, Esearch: t.Esearch, Esummary: t.Esummary, Xtract: t.Xtract}
}
