package refdata

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

// ExaminationTypeRow is one reference row: the canonical type and the
// labels that resolve to it.
type ExaminationTypeRow struct {
	Type    domain.ExaminationType
	Aliases []string
}

var requiredColumns = []string{"code", "name", "aliases"}

// ParseExaminationTypes reads a workbook whose header row holds the columns
// code, name and aliases, plus an optional coordonance column. Aliases are
// separated by ';' and the canonical name is always included as one. An
// empty sheet selects the first one.
func ParseExaminationTypes(data []byte, sheet string) ([]ExaminationTypeRow, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open workbook", err)
	}
	defer file.Close()

	if sheet == "" {
		sheets := file.GetSheetList()
		if len(sheets) == 0 {
			return nil, domain.WrapError(domain.ErrInvalidInput, "open workbook", fmt.Errorf("workbook has no sheets"))
		}
		sheet = sheets[0]
	}

	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read rows", err)
	}
	if len(rows) < 2 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read rows", fmt.Errorf("sheet %q has no data rows", sheet))
	}

	columns := make(map[string]int, len(rows[0]))
	for i, col := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read header", fmt.Errorf("missing required column: %s", col))
		}
	}

	var out []ExaminationTypeRow
	for i, row := range rows[1:] {
		rowNum := i + 2
		get := func(col string) string {
			if idx, ok := columns[col]; ok && idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}

		code, name := get("code"), get("name")
		if code == "" && name == "" {
			continue
		}
		if code == "" || name == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse row", fmt.Errorf("row %d: code and name are required", rowNum))
		}

		aliases := append([]string{name}, strings.Split(get("aliases"), ";")...)
		aliases = lo.Uniq(lo.Compact(lo.Map(aliases, func(a string, _ int) string {
			return strings.TrimSpace(a)
		})))

		out = append(out, ExaminationTypeRow{
			Type:    domain.ExaminationType{Name: name, Code: code, Coordonance: get("coordonance")},
			Aliases: aliases,
		})
	}
	return out, nil
}
