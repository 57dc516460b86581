// Package postgres serves list pages straight from a Postgres read replica of
// the back-office database.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kasirinaja/backoffice/internal/domain"
	"kasirinaja/backoffice/internal/filter"
	"kasirinaja/backoffice/internal/query"
	"kasirinaja/backoffice/internal/screens"
	"kasirinaja/backoffice/internal/source"
)

const defaultPerPage = 10

type executor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an already opened handle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) List(ctx context.Context, screen *screens.Screen, params query.Params) (*domain.Page, error) {
	if screen == nil {
		return nil, source.ErrUnknownScreen
	}
	page, perPage := query.Paging(params, defaultPerPage)
	items, total, err := queryList(ctx, s.db, screen, params, page, perPage)
	if err != nil {
		return nil, classify(err)
	}
	return &domain.Page{
		Items: items,
		Pagination: domain.Pagination{
			CurrentPage: page,
			LastPage:    source.LastPage(total, perPage),
			PerPage:     perPage,
			Total:       total,
		},
	}, nil
}

type where struct {
	clauses []string
	args    []any
}

func (w *where) next(arg any) string {
	w.args = append(w.args, arg)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *where) add(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *where) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func buildWhere(screen *screens.Screen, params query.Params) (*where, error) {
	w := &where{}

	if params.Get(query.KeyStoreIDs) != filter.All && params.Has(query.KeyStoreID) {
		id, err := domain.ParseStoreID(params.Get(query.KeyStoreID))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", source.ErrInvalidQuery, err)
		}
		w.add(ident(screen.StoreColumnName()) + " = " + w.next(int64(id)))
	}

	if search := strings.TrimSpace(params.Get(query.KeySearch)); search != "" && len(screen.SearchColumns) > 0 {
		p := w.next(search)
		parts := make([]string, 0, len(screen.SearchColumns))
		for _, col := range screen.SearchColumns {
			parts = append(parts, fmt.Sprintf("%s::text ILIKE '%%' || %s || '%%'", ident(col), p))
		}
		w.add("(" + strings.Join(parts, " OR ") + ")")
	}

	if screen.DateColumn != "" {
		keys := screen.DateKeys()
		col := ident(screen.DateColumn)
		if from := params.Get(keys.Start); from != "" {
			w.add(col + " >= " + w.next(from))
		}
		if to := params.Get(keys.End); to != "" {
			w.add(col + " <= " + w.next(to))
		}
	}

	for _, field := range screen.Filters {
		values := field.Values(params)
		if len(values) == 0 {
			continue
		}
		if err := addField(w, field, values); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func addField(w *where, field screens.Field, values []string) error {
	col := ident(field.ColumnName())
	op := field.Operator()

	arg := func(v string) (any, error) {
		if field.Type != filter.FieldNumber && op != screens.OpGte && op != screens.OpLte {
			return v, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s is not a number", source.ErrInvalidQuery, field.Param())
		}
		return f, nil
	}

	switch op {
	case screens.OpIn:
		placeholders := make([]string, 0, len(values))
		for _, v := range values {
			a, err := arg(v)
			if err != nil {
				return err
			}
			placeholders = append(placeholders, w.next(a))
		}
		w.add(col + " IN (" + strings.Join(placeholders, ", ") + ")")
	case screens.OpLike:
		w.add(fmt.Sprintf("%s ILIKE '%%' || %s || '%%'", col, w.next(values[0])))
	default:
		a, err := arg(values[0])
		if err != nil {
			return err
		}
		sym := map[screens.Op]string{screens.OpGte: ">=", screens.OpLte: "<="}[op]
		if sym == "" {
			sym = "="
		}
		w.add(col + " " + sym + " " + w.next(a))
	}
	return nil
}

// orderClause only ever emits a sortable column of the screen.
func orderClause(screen *screens.Screen, s query.Sort) (string, error) {
	if s.Field == "" {
		s = screen.DefaultSortState()
	}
	if s.Field == "" {
		return ident("id") + " ASC", nil
	}
	if !screen.CanSort(s.Field) {
		return "", fmt.Errorf("%w: cannot sort by %q", source.ErrInvalidQuery, s.Field)
	}
	dir := "ASC"
	if s.Direction == query.Desc {
		dir = "DESC"
	}
	return ident(s.Field) + " " + dir + ", " + ident("id") + " ASC", nil
}

func queryList(ctx context.Context, db executor, screen *screens.Screen, params query.Params, page int, perPage int) ([]domain.Record, int, error) {
	if len(screen.Columns) == 0 {
		return nil, 0, fmt.Errorf("%w: screen %q declares no columns", source.ErrInvalidQuery, screen.Name)
	}
	w, err := buildWhere(screen, params)
	if err != nil {
		return nil, 0, err
	}
	order, err := orderClause(screen, query.SortOf(params))
	if err != nil {
		return nil, 0, err
	}

	cols := make([]string, 0, len(screen.Columns))
	for _, c := range screen.Columns {
		cols = append(cols, ident(c))
	}
	table := ident(screen.Table)
	whereSQL := w.sql()
	filterArgs := len(w.args)

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + strings.Join(cols, ", ") +
		" FROM " + table + whereSQL + " ORDER BY " + order
	dataQuery += " LIMIT " + w.next(perPage)
	if page-1 > math.MaxInt/perPage {
		return nil, 0, fmt.Errorf("%w: page %d is out of range", source.ErrInvalidQuery, page)
	}
	offset := (page - 1) * perPage
	if offset > 0 {
		dataQuery += " OFFSET " + w.next(offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", screen.Name, err)
	}
	defer rows.Close()

	items := make([]domain.Record, 0, perPage)
	total := 0
	for rows.Next() {
		record, rowTotal, err := scanRecord(rows, screen.Columns)
		if err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", screen.Name, err)
		}
		total = rowTotal
		items = append(items, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", screen.Name, err)
	}

	// A page past the end returns no rows and therefore no window count.
	if len(items) == 0 && offset > 0 {
		countQuery := "SELECT COUNT(*) FROM " + table + whereSQL
		if err := db.QueryRowContext(ctx, countQuery, w.args[:filterArgs]...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count %s: %w", screen.Name, err)
		}
	}
	return items, total, nil
}

func scanRecord(rows *sql.Rows, columns []string) (domain.Record, int, error) {
	var total int
	values := make([]any, len(columns))
	dest := make([]any, 0, len(columns)+1)
	dest = append(dest, &total)
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, 0, err
	}

	record := make(domain.Record, len(columns))
	for i, col := range columns {
		switch v := values[i].(type) {
		case []byte:
			record[col] = string(v)
		case time.Time:
			record[col] = v.Format(domain.TimestampLayout)
		case int32:
			record[col] = int64(v)
		default:
			record[col] = v
		}
	}
	return record, total, nil
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "42P01":
		return fmt.Errorf("%w: %s", source.ErrUnknownScreen, pgErr.Message)
	case "42703", "22007", "22008", "22P02":
		return fmt.Errorf("%w: %s", source.ErrInvalidQuery, pgErr.Message)
	default:
		return err
	}
}
