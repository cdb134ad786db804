package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/logger"
	"finmanager/internal/models"
)

// DefaultImportCategory is used for rows without a category column.
const DefaultImportCategory = "Uncategorized"

const (
	importColDate = iota
	importColAmount
	importColDescription
	importColCategory
	importColType
	importMinColumns = importColDescription + 1
)

// importDateLayouts are tried in order. Layouts without a zone are read as
// UTC.
var importDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04",
	"01/02/2006 15:04",
}

type lineStatus int

const (
	lineImported lineStatus = iota
	lineDuplicate
	lineFailed
)

type lineOutcome struct {
	line    int
	status  lineStatus
	reason  string
	warning string
}

// importBatch is the state shared by the workers of one ImportCSV call.
type importBatch struct {
	defaultCategoryID string
	existing          map[string]struct{}

	mu   sync.Mutex
	seen map[string]struct{}

	// guarded by importService.resolveMu
	categoryIDs map[string]string
}

// claim reserves key for the calling line. It reports false when the key is
// already known from before the batch or was claimed by another line.
func (b *importBatch) claim(key string) bool {
	if _, ok := b.existing[key]; ok {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.seen[key]; ok {
		return false
	}
	b.seen[key] = struct{}{}
	return true
}

func (b *importBatch) release(key string) {
	b.mu.Lock()
	delete(b.seen, key)
	b.mu.Unlock()
}

// importService turns CSV rows into ledger transactions.
type importService struct {
	categories   CategoryServicer
	transactions TransactionServicer
	workers      int
	now          func() time.Time

	resolveMu sync.Mutex
}

// NewImportService creates a new ImportServicer processing up to workers
// lines at a time.
func NewImportService(categories CategoryServicer, transactions TransactionServicer, workers int) ImportServicer {
	if workers < 1 {
		workers = 1
	}
	return &importService{
		categories:   categories,
		transactions: transactions,
		workers:      workers,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ImportCSV imports rows of the form date,amount,description[,category[,type]].
// Every line stands on its own: a bad line is reported in the result and the
// rest of the file is still imported. When ctx is cancelled no further lines
// are started and the partial result is returned along with ctx.Err().
func (s *importService) ImportCSV(ctx context.Context, r io.Reader, defaultCategoryID *string) (*ImportResult, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.WithMessage(apperrors.ErrInvalidInput, "could not read CSV input"), err)
	}

	batch := &importBatch{
		existing:    make(map[string]struct{}),
		seen:        make(map[string]struct{}),
		categoryIDs: make(map[string]string),
	}
	if defaultCategoryID != nil && *defaultCategoryID != "" {
		if _, err := s.categories.GetCategoryByID(*defaultCategoryID); err != nil {
			return nil, err
		}
		batch.defaultCategoryID = *defaultCategoryID
	}

	existing, err := s.transactions.GetAllTransactions()
	if err != nil {
		return nil, err
	}
	for _, tx := range existing {
		batch.existing[duplicateKey(tx.Amount, tx.Description, tx.Timestamp)] = struct{}{}
	}

	first := 0
	if len(lines) > 0 && strings.Contains(strings.ToLower(lines[0]), "date") {
		first = 1
	}

	outcomes := make([]*lineOutcome, len(lines))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := first; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = s.importLine(batch, i+1, lines[i])
			return nil
		})
	}
	_ = g.Wait()

	result := &ImportResult{Failures: []LineIssue{}, Warnings: []LineIssue{}}
	for _, o := range outcomes {
		if o == nil {
			continue
		}
		result.TotalProcessed++
		switch o.status {
		case lineImported:
			result.SuccessCount++
		case lineDuplicate:
			result.DuplicateCount++
		case lineFailed:
			result.Failures = append(result.Failures, LineIssue{Line: o.line, Reason: o.reason})
		}
		if o.warning != "" {
			result.Warnings = append(result.Warnings, LineIssue{Line: o.line, Reason: o.warning})
		}
	}

	logger.Get().Infow("csv import finished",
		"total_processed", result.TotalProcessed,
		"success_count", result.SuccessCount,
		"duplicate_count", result.DuplicateCount,
		"failure_count", len(result.Failures),
		"warning_count", len(result.Warnings),
	)

	return result, ctx.Err()
}

func (s *importService) importLine(batch *importBatch, lineNo int, raw string) *lineOutcome {
	out := &lineOutcome{line: lineNo}
	fail := func(reason string) *lineOutcome {
		out.status = lineFailed
		out.reason = reason
		return out
	}

	cols := strings.Split(raw, ",")
	if len(cols) < importMinColumns {
		return fail(fmt.Sprintf("insufficient columns: expected at least %d, got %d", importMinColumns, len(cols)))
	}
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}

	timestamp, ok := parseImportDate(cols[importColDate])
	if !ok {
		timestamp = s.now()
		out.warning = fmt.Sprintf("unrecognized date %q, imported with the current time", cols[importColDate])
	}

	amount, err := decimal.NewFromString(cols[importColAmount])
	if err != nil {
		return fail(fmt.Sprintf("invalid amount %q", cols[importColAmount]))
	}
	amount = amount.Abs()

	description := cols[importColDescription]

	categoryName := DefaultImportCategory
	if len(cols) > importColCategory && cols[importColCategory] != "" {
		categoryName = cols[importColCategory]
	}

	txType := models.TransactionTypeExpense
	if len(cols) > importColType && strings.EqualFold(cols[importColType], string(models.TransactionTypeIncome)) {
		txType = models.TransactionTypeIncome
	}

	key := duplicateKey(amount, description, timestamp)
	if !batch.claim(key) {
		out.status = lineDuplicate
		return out
	}

	categoryID, err := s.resolveCategory(batch, categoryName)
	if err != nil {
		batch.release(key)
		return fail(err.Error())
	}

	if _, err := s.transactions.CreateTransaction(TransactionInput{
		Amount:      amount,
		Description: description,
		Timestamp:   &timestamp,
		CategoryID:  categoryID,
		Type:        txType,
	}); err != nil {
		batch.release(key)
		return fail(err.Error())
	}

	out.status = lineImported
	return out
}

// resolveCategory maps a category name to an id: an existing category with
// that name (any case), else the batch default, else a newly created one.
// Resolution is serialized so two lines naming the same new category create
// it once.
func (s *importService) resolveCategory(batch *importBatch, name string) (string, error) {
	s.resolveMu.Lock()
	defer s.resolveMu.Unlock()

	cacheKey := strings.ToLower(name)
	if id, ok := batch.categoryIDs[cacheKey]; ok {
		return id, nil
	}

	category, err := s.categories.FindCategoryByName(name)
	switch {
	case err == nil:
		batch.categoryIDs[cacheKey] = category.ID
		return category.ID, nil
	case !errors.Is(err, apperrors.ErrCategoryNotFound):
		return "", err
	}

	if batch.defaultCategoryID != "" {
		return batch.defaultCategoryID, nil
	}

	categoryType := models.CategoryTypeExpense
	if strings.Contains(cacheKey, "income") {
		categoryType = models.CategoryTypeIncome
	}
	created, err := s.categories.CreateCategory(name, categoryType, nil, nil)
	if err != nil {
		return "", err
	}

	logger.Get().Infow("created category during import", "category_id", created.ID, "name", created.Name, "type", created.Type)
	batch.categoryIDs[cacheKey] = created.ID
	return created.ID, nil
}

func readLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	return lines, scanner.Err()
}

func parseImportDate(s string) (time.Time, bool) {
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// duplicateKey identifies a transaction by amount, description and exact
// instant.
func duplicateKey(amount decimal.Decimal, description string, timestamp time.Time) string {
	return amount.String() + "|" + description + "|" + timestamp.UTC().Format(time.RFC3339Nano)
}
