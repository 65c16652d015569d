package spreadsheet

import (
	"fmt"
	"strings"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

var headerAliases = map[string]string{
	"e_mail":           domain.ColumnEmail,
	"email_address":    domain.ColumnEmail,
	"alamat_email":     domain.ColumnEmail,
	"name":             domain.ColumnFullName,
	"fullname":         domain.ColumnFullName,
	"nama":             domain.ColumnFullName,
	"nama_lengkap":     domain.ColumnFullName,
	"phone_number":     domain.ColumnPhone,
	"mobile":           domain.ColumnPhone,
	"no_hp":            domain.ColumnPhone,
	"telepon":          domain.ColumnPhone,
	"member_no":        domain.ColumnMemberNumber,
	"member_id":        domain.ColumnMemberNumber,
	"nomor_anggota":    domain.ColumnMemberNumber,
	"provinsi":         domain.ColumnProvince,
	"universitas":      domain.ColumnUniversity,
	"campus":           domain.ColumnUniversity,
	"employment":       domain.ColumnEmploymentStatus,
	"status_pekerjaan": domain.ColumnEmploymentStatus,
	"salary":           domain.ColumnSalaryRange,
	"gaji":             domain.ColumnSalaryRange,
	"rentang_gaji":     domain.ColumnSalaryRange,
	"program_studi":    domain.ColumnStudyProgram,
	"prodi":            domain.ColumnStudyProgram,
	"major":            domain.ColumnStudyProgram,
}

// normalizeHeader lower-cases column names, joins words with underscores and
// maps known aliases to canonical columns. Empty header cells are kept as ""
// so their data is ignored without shifting the other columns.
func normalizeHeader(raw []string) ([]string, error) {
	header := make([]string, len(raw))
	seen := make(map[string]int, len(raw))

	for i, cell := range raw {
		name := columnKey(cell)
		if name == "" {
			continue
		}
		if canonical, ok := headerAliases[name]; ok {
			name = canonical
		}
		if prev, dup := seen[name]; dup {
			return nil, &domain.FormatError{Reason: fmt.Sprintf("column %q appears twice (columns %d and %d)", name, prev+1, i+1)}
		}
		seen[name] = i
		header[i] = name
	}

	for _, required := range domain.RequiredColumns {
		if _, ok := seen[required]; !ok {
			return nil, &domain.FormatError{Reason: fmt.Sprintf("missing required column %q", required)}
		}
	}
	return header, nil
}

func columnKey(cell string) string {
	cell = strings.TrimPrefix(cell, "\ufeff")
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(cell)), func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '.' || r == '\t'
	})
	return strings.Join(fields, "_")
}
