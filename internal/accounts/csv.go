package accounts

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/cleared-dev/ledger/internal/model"
)

const (
	numFields = 6
	colCode   = 0
	colName   = 1
	colType   = 2
	colRole   = 3
	colParent = 4
	colDesc   = 5
)

var header = []string{"code", "name", "type", "role", "parent_code", "description"}

// Row is one chart-of-accounts CSV record. Parents are referenced by code so
// a file can move between tenants.
type Row struct {
	Account    model.Account
	ParentCode string
}

// ReadAccounts reads a chart-of-accounts CSV.
func ReadAccounts(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var rows []Row
	for i, rec := range records[1:] {
		row, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteAccounts writes a chart-of-accounts CSV. Parent ids are written as codes.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	codes := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		codes[a.ID] = a.Code
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		row := Row{Account: acct}
		if acct.ParentID != nil {
			row.ParentCode = codes[*acct.ParentID]
		}
		if err := cw.Write(MarshalAccount(row)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalAccount converts a Row to a CSV record.
func MarshalAccount(row Row) []string {
	rec := make([]string, numFields)
	rec[colCode] = row.Account.Code
	rec[colName] = row.Account.Name
	rec[colType] = string(row.Account.Type)
	rec[colRole] = string(row.Account.Role)
	rec[colParent] = row.ParentCode
	rec[colDesc] = row.Account.Description
	return rec
}

// UnmarshalAccount converts a CSV record to a Row. Unknown types and roles are errors.
func UnmarshalAccount(record []string) (Row, error) {
	if len(record) != numFields {
		return Row{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	typ, err := model.ParseAccountType(record[colType])
	if err != nil {
		return Row{}, err
	}
	role, err := model.ParseSystemRole(record[colRole])
	if err != nil {
		return Row{}, err
	}

	return Row{
		Account: model.Account{
			Code:        record[colCode],
			Name:        record[colName],
			Type:        typ,
			Role:        role,
			Description: record[colDesc],
			IsActive:    true,
		},
		ParentCode: record[colParent],
	}, nil
}

// Split separates rows into accounts and a code-to-parent-code map for Import.
func Split(rows []Row) ([]model.Account, map[string]string) {
	accounts := make([]model.Account, len(rows))
	parents := make(map[string]string)
	for i, r := range rows {
		accounts[i] = r.Account
		if r.ParentCode != "" {
			parents[r.Account.Code] = r.ParentCode
		}
	}
	return accounts, parents
}
