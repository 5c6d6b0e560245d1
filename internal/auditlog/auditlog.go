// Package auditlog keeps an append-only CSV record of who changed the books.
//
// Rows are written after a mutation commits; the ledger database remains the
// source of truth and the log is never replayed.
package auditlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Action names what a row records.
type Action string

const (
	ActionInit          Action = "init"
	ActionAccountAdd    Action = "account_add"
	ActionAccountDelete Action = "account_delete"
	ActionAccountImport Action = "account_import"
	ActionEntryCreate   Action = "entry_create"
	ActionEntryDelete   Action = "entry_delete"
	ActionEntryReverse  Action = "entry_reverse"
	ActionPartnerAdd    Action = "partner_add"
	ActionPayment       Action = "payment"
	ActionSale          Action = "sale"
	ActionPurchase      Action = "purchase"
	ActionInventory     Action = "inventory_capitalize"
	ActionImport        Action = "statement_import"
)

// Record is one row of the activity log.
type Record struct {
	Timestamp   time.Time
	CompanyCode string
	UserID      string
	Action      Action
	Reference   string // entry number, account code or document id
	Details     string
}

// Header is the CSV header of activity.csv.
const Header = "timestamp,company_code,user_id,action,reference,details"

// RelPath is where the log lives relative to the ledger directory.
var RelPath = filepath.Join("logs", "activity.csv")

const (
	numFields    = 6
	colTimestamp = 0
	colCompany   = 1
	colUser      = 2
	colAction    = 3
	colReference = 4
	colDetails   = 5
)

// MarshalRecord converts a Record to a CSV row.
func MarshalRecord(r Record) []string {
	row := make([]string, numFields)
	row[colTimestamp] = r.Timestamp.UTC().Format(time.RFC3339)
	row[colCompany] = r.CompanyCode
	row[colUser] = r.UserID
	row[colAction] = string(r.Action)
	row[colReference] = r.Reference
	row[colDetails] = r.Details
	return row
}

// UnmarshalRecord converts a CSV row to a Record.
func UnmarshalRecord(row []string) (Record, error) {
	if len(row) != numFields {
		return Record{}, fmt.Errorf("expected %d fields, got %d", numFields, len(row))
	}
	ts, err := time.Parse(time.RFC3339, row[colTimestamp])
	if err != nil {
		return Record{}, fmt.Errorf("parsing timestamp %q: %w", row[colTimestamp], err)
	}
	return Record{
		Timestamp:   ts,
		CompanyCode: row[colCompany],
		UserID:      row[colUser],
		Action:      Action(row[colAction]),
		Reference:   row[colReference],
		Details:     row[colDetails],
	}, nil
}

// Log appends records under a ledger directory.
type Log struct {
	dir string
	now func() time.Time
}

// New returns a Log rooted at dir.
func New(dir string) *Log {
	return &Log{dir: dir, now: time.Now}
}

// Path is the absolute location of the CSV file.
func (l *Log) Path() string {
	return filepath.Join(l.dir, RelPath)
}

// Append writes records, stamping any without a timestamp, and creates the
// file with its header on first use.
func (l *Log) Append(records ...Record) error {
	path := l.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	_, statErr := os.Stat(path)
	needsHeader := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, r := range records {
		if r.Timestamp.IsZero() {
			r.Timestamp = l.now()
		}
		if err := cw.Write(MarshalRecord(r)); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns every record, or nil if nothing has been logged yet.
func (l *Log) Read() ([]Record, error) {
	f, err := os.Open(l.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening activity log: %w", err)
	}
	defer f.Close()
	return readRecords(f)
}

func readRecords(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading activity log: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := UnmarshalRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
