package bookstore

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// importColumns is the required CSV header, in order.
var importColumns = []string{"title", "author", "price", "published_date"}

type ImportBooksMessage struct {
	Reader     io.Reader
	OwnerID    *uuid.UUID
	OnResponse func(r *ImportBooksResponse)
}

func (e ImportBooksMessage) Type() string { return "books.import" }

type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportBooksResponse struct {
	Inserted int              `json:"inserted"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors"`
}

// ImportBooksHandler loads a CSV catalog dump. Rows validate
// independently: bad rows are reported with their line number and skipped,
// good rows commit regardless.
type ImportBooksHandler struct {
	Repo RepositoryManager
}

func (h *ImportBooksHandler) Execute(ctx context.Context, event ImportBooksMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during book import",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ImportBooksHandler) execute(ctx context.Context, event ImportBooksMessage) error {
	resp := &ImportBooksResponse{Errors: []ImportRowError{}}

	ownerID := event.OwnerID
	if ownerID == nil {
		// Fall back to the authenticated caller carried on the context.
		if identity, ok := IdentityFromContext(ctx); ok {
			if id, err := uuid.Parse(identity.ID()); err == nil {
				ownerID = &id
			}
		}
	}

	reader := csv.NewReader(event.Reader)
	reader.TrimLeadingSpace = true
	// Let per-row validation report column mismatches instead of aborting
	// the whole file.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to read CSV header").
			WithCode(goerrors.CodeBadRequest)
	}

	if err := validateImportHeader(header); err != nil {
		return err
	}

	records := []*Book{}
	row := 1
	for {
		row++
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			resp.Skipped++
			resp.Errors = append(resp.Errors, ImportRowError{Row: row, Error: err.Error()})
			continue
		}

		book, err := parseImportRow(fields, ownerID)
		if err != nil {
			resp.Skipped++
			resp.Errors = append(resp.Errors, ImportRowError{Row: row, Error: err.Error()})
			continue
		}

		records = append(records, book)
	}

	if len(records) > 0 {
		ctx, cancel := context.WithTimeout(ctx, time.Second*30)
		defer cancel()

		err = h.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, record := range records {
				if _, err := h.Repo.Books().CreateTx(ctx, tx, record); err != nil {
					return goerrors.Wrap(err, goerrors.CategoryInternal, "could not insert imported book")
				}
			}
			return nil
		})

		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "book import transaction failed")
		}

		resp.Inserted = len(records)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func validateImportHeader(header []string) error {
	if len(header) != len(importColumns) {
		return badImportHeader(header)
	}
	for i, col := range importColumns {
		if strings.TrimSpace(strings.ToLower(header[i])) != col {
			return badImportHeader(header)
		}
	}
	return nil
}

func badImportHeader(header []string) error {
	return goerrors.New("CSV header must be: "+strings.Join(importColumns, ","), goerrors.CategoryBadInput).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"header": strings.Join(header, ","),
		})
}

func parseImportRow(fields []string, ownerID *uuid.UUID) (*Book, error) {
	if len(fields) != len(importColumns) {
		return nil, goerrors.New("wrong number of columns", goerrors.CategoryBadInput)
	}

	title := strings.TrimSpace(fields[0])
	author := strings.TrimSpace(fields[1])

	if title == "" || len(title) > MaxTitleLength {
		return nil, goerrors.New("title is required and must be at most 120 characters", goerrors.CategoryBadInput)
	}
	if author == "" || len(author) > MaxAuthorLength {
		return nil, goerrors.New("author is required and must be at most 80 characters", goerrors.CategoryBadInput)
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil || price <= 0 {
		return nil, goerrors.New("price must be a positive number", goerrors.CategoryBadInput)
	}

	book := &Book{
		Title:   title,
		Author:  author,
		Price:   price,
		OwnerID: ownerID,
	}

	if raw := strings.TrimSpace(fields[3]); raw != "" {
		published, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, goerrors.New("published_date must be YYYY-MM-DD", goerrors.CategoryBadInput)
		}
		book.PublishedDate = &published
	}

	return book, nil
}

const (
	// MaxTitleLength bounds book titles.
	MaxTitleLength = 120
	// MaxAuthorLength bounds book author names.
	MaxAuthorLength = 80
)
