package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StoreID identifies a store (tenant) in the back-office API.
type StoreID int64

func (id StoreID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func ParseStoreID(raw string) (StoreID, error) {
	trimmed := strings.TrimSpace(raw)
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || parsed < 1 {
		return 0, fmt.Errorf("invalid store id %q", raw)
	}
	return StoreID(parsed), nil
}

type Store struct {
	ID      StoreID `json:"id"`
	Name    string  `json:"name"`
	Address string  `json:"address,omitempty"`
	Active  bool    `json:"active"`
}

// Record is one row of a list screen as returned by a list collaborator.
type Record map[string]any

// Pagination is the server-side page metadata of a list response.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

type Page struct {
	Items      []Record   `json:"items"`
	Pagination Pagination `json:"pagination"`
}

type Brand struct {
	ID        int64     `json:"id"`
	StoreID   StoreID   `json:"store_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Staff struct {
	ID        int64     `json:"id"`
	StoreID   StoreID   `json:"store_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Expense struct {
	ID          int64     `json:"id"`
	StoreID     StoreID   `json:"store_id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	PaymentType string    `json:"payment_type"`
	AmountCents int64     `json:"amount_cents"`
	SpentAt     time.Time `json:"spent_at"`
}

type PurchaseDue struct {
	ID         int64     `json:"id"`
	StoreID    StoreID   `json:"store_id"`
	Reference  string    `json:"reference"`
	SupplierID int64     `json:"supplier_id"`
	Supplier   string    `json:"supplier"`
	Status     string    `json:"status"`
	DueCents   int64     `json:"due_cents"`
	DueDate    time.Time `json:"due_date"`
	CreatedAt  time.Time `json:"created_at"`
}

type IncomeEntry struct {
	ID            int64     `json:"id"`
	StoreID       StoreID   `json:"store_id"`
	InvoiceNo     string    `json:"invoice_no"`
	PaymentType   string    `json:"payment_type"`
	GrossCents    int64     `json:"gross_cents"`
	NetCents      int64     `json:"net_cents"`
	TransactionAt time.Time `json:"transaction_at"`
}

// Record conversions keep timestamps in the API's "yyyy-MM-dd HH:mm:ss" shape
// so that in-memory rows compare the same way server rows do.

const TimestampLayout = "2006-01-02 15:04:05"

func (b Brand) Record() Record {
	return Record{
		"id":         b.ID,
		"store_id":   int64(b.StoreID),
		"name":       b.Name,
		"status":     b.Status,
		"created_at": b.CreatedAt.Format(TimestampLayout),
	}
}

func (s Staff) Record() Record {
	return Record{
		"id":         s.ID,
		"store_id":   int64(s.StoreID),
		"name":       s.Name,
		"email":      s.Email,
		"role":       s.Role,
		"status":     s.Status,
		"created_at": s.CreatedAt.Format(TimestampLayout),
	}
}

func (e Expense) Record() Record {
	return Record{
		"id":           e.ID,
		"store_id":     int64(e.StoreID),
		"title":        e.Title,
		"category":     e.Category,
		"payment_type": e.PaymentType,
		"amount_cents": e.AmountCents,
		"spent_at":     e.SpentAt.Format(TimestampLayout),
	}
}

func (s Store) Record() Record {
	status := "inactive"
	if s.Active {
		status = "active"
	}
	return Record{
		"id":       int64(s.ID),
		"store_id": int64(s.ID),
		"name":     s.Name,
		"address":  s.Address,
		"status":   status,
	}
}

func (p PurchaseDue) Record() Record {
	return Record{
		"id":          p.ID,
		"store_id":    int64(p.StoreID),
		"reference":   p.Reference,
		"supplier_id": p.SupplierID,
		"supplier":    p.Supplier,
		"status":      p.Status,
		"due_cents":   p.DueCents,
		"due_date":    p.DueDate.Format(TimestampLayout),
		"created_at":  p.CreatedAt.Format(TimestampLayout),
	}
}

func (i IncomeEntry) Record() Record {
	return Record{
		"id":             i.ID,
		"store_id":       int64(i.StoreID),
		"invoice_no":     i.InvoiceNo,
		"payment_type":   i.PaymentType,
		"gross_cents":    i.GrossCents,
		"net_cents":      i.NetCents,
		"transaction_at": i.TransactionAt.Format(TimestampLayout),
	}
}

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

const (
	DueStatusDue     = "due"
	DueStatusOverdue = "overdue"
	DueStatusPaid    = "paid"
)
