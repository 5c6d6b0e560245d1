package bankimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/ledger/internal/errs"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/session"
	"github.com/cleared-dev/ledger/internal/store"
)

// Entries converts statement lines into journal entries against the bank
// account. Money in debits the bank and credits offset; money out is the
// mirror. Zero-amount lines are dropped. The reference goes into the bank
// line's memo.
func Entries(lines []StatementLine, bankAccountID, offsetAccountID int64) []model.JournalEntry {
	var out []model.JournalEntry
	for _, l := range lines {
		if !l.Amount.IsZero() {
			out = append(out, entryFor(l, bankAccountID, offsetAccountID))
		}
	}
	return out
}

func entryFor(l StatementLine, bankAccountID, offsetAccountID int64) model.JournalEntry {
	amt := l.Amount.Abs()
	bank := model.DebitLine(bankAccountID, amt, l.Reference)
	offset := model.CreditLine(offsetAccountID, amt, "")
	if l.Amount.IsNegative() {
		bank = model.CreditLine(bankAccountID, amt, l.Reference)
		offset = model.DebitLine(offsetAccountID, amt, "")
	}
	return model.JournalEntry{
		Type:        model.TypeJournal,
		Date:        l.Date,
		Description: l.Description,
		Lines:       []model.LineItem{bank, offset},
	}
}

// Result counts what an import did.
type Result struct {
	Posted  int
	Skipped int // already imported
	Numbers []string
}

// Importer posts statement lines through the journal engine.
type Importer struct {
	journal *journal.Service
	log     *slog.Logger
}

// NewImporter creates an Importer.
func NewImporter(j *journal.Service, log *slog.Logger) *Importer {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Importer{journal: j, log: log}
}

// Import posts every line not already on the bank account, all or nothing.
// A line counts as imported when a bank-account line with its reference as
// memo exists.
func (im *Importer) Import(ctx context.Context, sess session.Session, lines []StatementLine, bankAccountID, offsetAccountID int64) (Result, error) {
	if err := session.Require(sess); err != nil {
		return Result{}, err
	}
	if bankAccountID == offsetAccountID {
		return Result{}, errs.Validation("bank and offset account must differ")
	}

	var res Result
	err := im.journal.Store().Atomic(ctx, func(ctx context.Context, r *store.Repo) error {
		bank, err := r.GetAccount(ctx, sess.TenantID, bankAccountID)
		if err != nil {
			return fmt.Errorf("bank account: %w", err)
		}
		if bank.Category() != model.CategoryAsset {
			return errs.Validation("bank account %s is not an asset account", bank.Code)
		}
		seen, err := importedRefs(ctx, r, sess.TenantID, bankAccountID)
		if err != nil {
			return err
		}

		res = Result{}
		for _, l := range lines {
			if l.Amount.IsZero() {
				continue
			}
			if l.Reference != "" && seen[l.Reference] {
				res.Skipped++
				continue
			}
			posted, err := im.journal.CreateEntryTx(ctx, r, sess, entryFor(l, bankAccountID, offsetAccountID))
			if err != nil {
				return fmt.Errorf("importing %q on %s: %w", l.Description, l.Date.Format("2006-01-02"), err)
			}
			seen[l.Reference] = true
			res.Posted++
			res.Numbers = append(res.Numbers, posted.Number)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	im.log.Info("statement imported", "posted", res.Posted, "skipped", res.Skipped)
	return res, nil
}

func importedRefs(ctx context.Context, r *store.Repo, tenantID string, bankAccountID int64) (map[string]bool, error) {
	entries, err := r.ListEntries(ctx, store.EntryFilter{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	refs := make(map[string]bool)
	for _, e := range entries {
		for _, l := range e.Lines {
			if l.AccountID == bankAccountID && l.Memo != "" {
				refs[l.Memo] = true
			}
		}
	}
	return refs, nil
}

// Inbox is the drop directory for statement files under a ledger directory.
const Inbox = "import"

const processedDir = "processed"

// FileInfo describes a statement file waiting in the inbox.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Scan returns the CSV files in <dir>/import/, ignoring processed/.
func Scan(dir string) ([]FileInfo, error) {
	inbox := filepath.Join(dir, Inbox)
	entries, err := os.ReadDir(inbox)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{Name: e.Name(), Path: filepath.Join(inbox, e.Name()), Size: info.Size()})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(dir, fileName string) error {
	dst := filepath.Join(dir, Inbox, processedDir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}
	if err := os.Rename(filepath.Join(dir, Inbox, fileName), filepath.Join(dst, fileName)); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// ParseFile reads one statement file with p.
func ParseFile(p Parser, path string) ([]StatementLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	lines, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lines, nil
}

// ParseFiles parses the files concurrently. Results are in the order of
// files; the first failure cancels the rest and nothing is returned.
func ParseFiles(ctx context.Context, p Parser, files []FileInfo) ([][]StatementLine, error) {
	out := make([][]StatementLine, len(files))
	group, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lines, err := ParseFile(p, f.Path)
			if err != nil {
				return err
			}
			out[i] = lines
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
