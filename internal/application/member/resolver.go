package member

import (
	"context"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

// Resolver maps reference names from a sheet to master-data ids. It holds a
// snapshot taken once per run and is safe for concurrent use.
type Resolver struct {
	byName map[domain.ReferenceField]map[string][]int64
	names  map[domain.ReferenceField][]string
	salary []domain.SalaryRange
}

func LoadResolver(ctx context.Context, source domain.ReferenceSource) (*Resolver, error) {
	data, err := source.LoadReferenceData(ctx)
	if err != nil {
		return nil, errors.Wrap(ErrReferenceUnavailable, err.Error())
	}
	return NewResolver(data), nil
}

func NewResolver(data domain.ReferenceData) *Resolver {
	fold := cases.Fold()
	r := &Resolver{
		byName: make(map[domain.ReferenceField]map[string][]int64, len(domain.ReferenceFields)),
		names:  make(map[domain.ReferenceField][]string, len(domain.ReferenceFields)),
		salary: data.SalaryRanges,
	}

	for _, field := range domain.ReferenceFields {
		items := data.Items(field)
		index := make(map[string][]int64, len(items))
		names := make([]string, 0, len(items))
		for _, item := range items {
			key := fold.String(strings.TrimSpace(item.Name))
			index[key] = append(index[key], item.ID)
			names = append(names, item.Name)
		}
		r.byName[field] = index
		r.names[field] = names
	}
	return r
}

// Resolve looks up every reference column of row. Empty cells resolve to no
// reference and are not failures.
func (r *Resolver) Resolve(row domain.SheetRow) domain.ResolvedRow {
	fold := cases.Fold()
	resolved := domain.ResolvedRow{SheetRow: row}
	if row.Blank {
		return resolved
	}

	for _, field := range domain.ReferenceFields {
		value := strings.TrimSpace(row.Get(string(field)))
		if value == "" {
			continue
		}
		id, failure := r.resolveField(fold, field, value)
		if failure != nil {
			resolved.Failures = append(resolved.Failures, *failure)
			continue
		}
		resolved.References.Set(field, id)
	}
	return resolved
}

func (r *Resolver) resolveField(fold cases.Caser, field domain.ReferenceField, value string) (int64, *domain.ResolutionFailure) {
	ids := r.byName[field][fold.String(value)]
	switch {
	case len(ids) == 1:
		return ids[0], nil
	case len(ids) > 1:
		return 0, &domain.ResolutionFailure{Field: field, Value: value, Ambiguous: true}
	}

	if field == domain.FieldSalaryRange {
		if id, failure, ok := r.resolveAmount(value); ok {
			return id, failure
		}
	}

	return 0, &domain.ResolutionFailure{
		Field:      field,
		Value:      value,
		Suggestion: closestName(value, r.names[field]),
	}
}

// resolveAmount reads value as a salary figure. ok is false when value is
// not a number.
func (r *Resolver) resolveAmount(value string) (int64, *domain.ResolutionFailure, bool) {
	amount, err := decimal.NewFromString(strings.NewReplacer(",", "", "_", "", " ", "").Replace(value))
	if err != nil {
		return 0, nil, false
	}

	var matches []int64
	for _, band := range r.salary {
		if band.Contains(amount) {
			matches = append(matches, band.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil, true
	case 0:
		return 0, &domain.ResolutionFailure{Field: domain.FieldSalaryRange, Value: value}, true
	default:
		return 0, &domain.ResolutionFailure{Field: domain.FieldSalaryRange, Value: value, Ambiguous: true}, true
	}
}

// closestName only feeds the "did you mean" hint.
func closestName(value string, names []string) string {
	if len(names) == 0 {
		return ""
	}

	ranks := fuzzy.RankFindNormalizedFold(value, names)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	folded := strings.ToLower(value)
	best, bestDistance := "", -1
	for _, name := range names {
		d := fuzzy.LevenshteinDistance(folded, strings.ToLower(name))
		if bestDistance < 0 || d < bestDistance {
			best, bestDistance = name, d
		}
	}
	if bestDistance > maxSuggestionDistance(value) {
		return ""
	}
	return best
}

func maxSuggestionDistance(value string) int {
	n := len([]rune(value)) / 3
	if n < 2 {
		return 2
	}
	return n
}
