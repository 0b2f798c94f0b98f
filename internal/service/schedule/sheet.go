package schedule

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/solutions/interview-gate/internal/protodef/errors"
	"github.com/solutions/interview-gate/internal/protodef/form"
)

// EmailColumn 候选人名单中邮箱列的列名，不区分大小写。
const EmailColumn = "email"

// ParseCandidateSheet 解析上传的候选人名单，支持 csv 与 xlsx（只读第一个 sheet），首行为表头。
func ParseCandidateSheet(filename string, r io.Reader) ([]form.CandidateRow, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", "":
		records, err = readCSV(r)
	case ".xlsx", ".xlsm":
		records, err = readXLSX(r)
	default:
		return nil, errors.Validation("candidate list must be a .csv or .xlsx file")
	}
	if err != nil {
		return nil, err
	}
	return toRows(records), nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(errors.ServerErrorValidation, "malformed csv file", err)
	}
	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.Wrap(errors.ServerErrorValidation, "malformed xlsx file", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.Validation("xlsx file has no sheet")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrap(errors.ServerErrorValidation, "malformed xlsx file", err)
	}
	return rows, nil
}

// toRows 以首行为表头，列名转为小写，重名的列只取第一列。
func toRows(records [][]string) []form.CandidateRow {
	if len(records) == 0 {
		return nil
	}
	header := make([]string, len(records[0]))
	seen := map[string]bool{}
	for i, name := range records[0] {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		header[i] = name
	}
	rows := make([]form.CandidateRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := form.CandidateRow{}
		for i, value := range record {
			if i < len(header) && header[i] != "" {
				row[header[i]] = value
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// CandidateEmails 取出每行的邮箱，去掉首尾空白并转为小写，丢弃空值，不去重。
func CandidateEmails(rows []form.CandidateRow) []string {
	emails := make([]string, 0, len(rows))
	for _, row := range rows {
		if email := strings.ToLower(strings.TrimSpace(emailOf(row))); email != "" {
			emails = append(emails, email)
		}
	}
	return emails
}

// emailOf 优先取列名恰好为 email 的列，否则按列名排序取第一个不区分大小写匹配的列。
func emailOf(row form.CandidateRow) string {
	if value, ok := row[EmailColumn]; ok {
		return value
	}
	keys := make([]string, 0, len(row))
	for key := range row {
		if strings.EqualFold(strings.TrimSpace(key), EmailColumn) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return row[keys[0]]
}
