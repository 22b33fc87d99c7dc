// Package mapping reconciles arbitrary CSV headers with the canonical contact
// schema.
package mapping

import (
	"sort"
	"strings"
	"unicode"

	"github.com/campaign-vault/backend/internal/apperrors"
	"github.com/campaign-vault/backend/internal/models"
	"golang.org/x/text/cases"
)

// FieldMapping maps a canonical field to a source header. An empty header
// means the field is unmapped.
type FieldMapping map[Field]string

type Mapper struct {
	aliases map[Field][]string
	// normalized alias -> true, per field
	index map[Field]map[string]bool
}

// NewMapper builds a mapper from the built-in alias table plus extra
// aliases. Extra aliases are appended after the built-in ones.
func NewMapper(extra map[Field][]string) *Mapper {
	m := &Mapper{
		aliases: make(map[Field][]string, len(AllFields)),
		index:   make(map[Field]map[string]bool, len(AllFields)),
	}
	for _, f := range AllFields {
		names := append([]string{string(f)}, defaultAliases[f]...)
		names = append(names, extra[f]...)
		m.aliases[f] = names
		set := make(map[string]bool, len(names))
		for _, n := range names {
			if key := Normalize(n); key != "" {
				set[key] = true
			}
		}
		m.index[f] = set
	}
	return m
}

// Aliases returns the alias list of f, canonical name first.
func (m *Mapper) Aliases(f Field) []string {
	return append([]string(nil), m.aliases[f]...)
}

// Normalize case-folds s and strips whitespace and punctuation.
func Normalize(s string) string {
	folded := cases.Fold().String(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Propose guesses a mapping for headers. Fields are visited in AllFields
// order and each takes the first unclaimed header matching one of its
// aliases. Fields without a match are present with an empty header.
func (m *Mapper) Propose(headers []string) FieldMapping {
	out := make(FieldMapping, len(AllFields))
	claimed := make([]bool, len(headers))
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = Normalize(h)
	}

	for _, f := range AllFields {
		out[f] = ""
		for i, key := range normalized {
			if claimed[i] || key == "" {
				continue
			}
			if m.index[f][key] {
				out[f] = headers[i]
				claimed[i] = true
				break
			}
		}
	}
	return out
}

// ValidatedMapping is a mapping resolved to column positions of one header
// row.
type ValidatedMapping struct {
	headers []string
	columns map[Field]int
	extra   []int
}

// Validate checks m against headers and resolves each mapped field to a
// column index. Checks run in AllFields order so the reported error is
// deterministic.
func (m *Mapper) Validate(fm FieldMapping, headers []string) (*ValidatedMapping, error) {
	var unknown []string
	for f := range fm {
		if !f.Valid() {
			unknown = append(unknown, string(f))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &apperrors.MappingError{Kind: apperrors.UnknownField, Field: unknown[0]}
	}

	position := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if _, seen := position[h]; !seen {
			position[h] = i
		}
	}

	vm := &ValidatedMapping{
		headers: append([]string(nil), headers...),
		columns: make(map[Field]int, len(AllFields)),
	}
	usedBy := make(map[int]Field)

	for _, f := range AllFields {
		header := strings.TrimSpace(fm[f])
		if header == "" {
			if f.Required() {
				return nil, apperrors.NewMissingRequiredField(string(f))
			}
			continue
		}
		idx, ok := position[header]
		if !ok {
			return nil, &apperrors.MappingError{Kind: apperrors.UnknownHeader, Field: string(f), Header: header}
		}
		if _, taken := usedBy[idx]; taken {
			return nil, apperrors.NewDuplicateTarget(string(f), header)
		}
		usedBy[idx] = f
		vm.columns[f] = idx
	}

	for i, h := range headers {
		if _, mapped := usedBy[i]; !mapped && strings.TrimSpace(h) != "" {
			vm.extra = append(vm.extra, i)
		}
	}
	return vm, nil
}

// Column returns the index of the column mapped to f.
func (v *ValidatedMapping) Column(f Field) (int, bool) {
	idx, ok := v.columns[f]
	return idx, ok
}

// ExtraHeaders returns the headers that are kept as extra fields.
func (v *ValidatedMapping) ExtraHeaders() []string {
	out := make([]string, 0, len(v.extra))
	for _, i := range v.extra {
		out = append(out, strings.TrimSpace(v.headers[i]))
	}
	return out
}

// Mapping returns the resolved mapping, unmapped fields omitted.
func (v *ValidatedMapping) Mapping() FieldMapping {
	out := make(FieldMapping, len(v.columns))
	for f, i := range v.columns {
		out[f] = strings.TrimSpace(v.headers[i])
	}
	return out
}

// Apply projects one record onto the contact schema. Values are trimmed;
// missing trailing columns read as empty. Empty extra values are dropped.
func (v *ValidatedMapping) Apply(record []string) models.ContactFields {
	get := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	field := func(f Field) string {
		i, ok := v.columns[f]
		if !ok {
			return ""
		}
		return get(i)
	}

	out := models.ContactFields{
		FirstName:   field(FirstName),
		LastName:    field(LastName),
		Email:       field(Email),
		Company:     field(Company),
		Title:       field(Title),
		Phone:       field(Phone),
		Location:    field(Location),
		LinkedInURL: field(LinkedInURL),
	}
	for _, i := range v.extra {
		val := get(i)
		if val == "" {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]string, len(v.extra))
		}
		out.Extra[strings.TrimSpace(v.headers[i])] = val
	}
	return out
}
