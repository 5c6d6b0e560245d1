package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cleared-dev/ledger/internal/model"
)

// Header is the CSV header of a line-item export.
const Header = "entry_number,type,date,description,line,account_code,debit,credit,memo,partner_id,clears_line_id,open_item_status"

const (
	numFields   = 12
	dateFormat  = "2006-01-02"
	colNumber   = 0
	colType     = 1
	colDate     = 2
	colDesc     = 3
	colLine     = 4
	colAcct     = 5
	colDebit    = 6
	colCredit   = 7
	colMemo     = 8
	colPartner  = 9
	colClears   = 10
	colOpenItem = 11
)

// WriteLines writes every line of entries, one CSV row per line. codes maps
// account ids to codes; unknown ids are written as the numeric id.
func WriteLines(w io.Writer, entries []model.JournalEntry, codes map[int64]string) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := 2
	for _, e := range entries {
		for _, l := range e.Lines {
			if err := cw.Write(MarshalLine(e, l, codes)); err != nil {
				return fmt.Errorf("writing row %d: %w", row, err)
			}
			row++
		}
	}
	return cw.Error()
}

// MarshalLine converts one line of an entry to a CSV record.
func MarshalLine(e model.JournalEntry, l model.LineItem, codes map[int64]string) []string {
	rec := make([]string, numFields)
	rec[colNumber] = e.Number
	rec[colType] = string(e.Type)
	rec[colDate] = e.Date.Format(dateFormat)
	rec[colDesc] = e.Description
	rec[colLine] = strconv.Itoa(l.Number)
	if code, ok := codes[l.AccountID]; ok {
		rec[colAcct] = code
	} else {
		rec[colAcct] = strconv.FormatInt(l.AccountID, 10)
	}
	if l.IsDebit() {
		rec[colDebit] = l.Amount.StringFixed(2)
	} else {
		rec[colCredit] = l.Amount.StringFixed(2)
	}
	rec[colMemo] = l.Memo
	rec[colPartner] = l.PartnerID
	if l.ClearsLineID != nil {
		rec[colClears] = strconv.FormatInt(*l.ClearsLineID, 10)
	}
	rec[colOpenItem] = string(l.OpenItemStatus)
	return rec
}
