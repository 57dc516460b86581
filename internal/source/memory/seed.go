package memory

import (
	"fmt"
	"strings"
	"time"

	"kasirinaja/backoffice/internal/domain"
)

// NewSeeded builds a demo dataset for three stores, dated relative to now.
func NewSeeded(now time.Time) *Store {
	s := New()
	day := time.Date(now.Year(), now.Month(), now.Day(), 10, 0, 0, 0, now.Location())

	s.stores = []domain.Store{
		{ID: 7, Name: "Toko Pusat", Address: "Jl. Sudirman 1, Jakarta", Active: true},
		{ID: 9, Name: "Cabang Depok", Address: "Jl. Margonda 22, Depok", Active: true},
		{ID: 12, Name: "Cabang Bogor", Address: "Jl. Pajajaran 5, Bogor", Active: false},
	}
	for _, st := range s.stores {
		s.Put("stores", st.Record())
	}
	owned := []domain.StoreID{7, 9}

	brands := []string{"Kopi Kenangan", "Indomie", "Aqua", "Teh Botol", "Chitato", "Silverqueen", "Ultra Milk", "Roti Aoka"}
	for i, name := range brands {
		status := domain.StatusActive
		if i%4 == 3 {
			status = domain.StatusInactive
		}
		s.Put("brands", domain.Brand{
			ID:        int64(i + 1),
			StoreID:   owned[i%len(owned)],
			Name:      name,
			Status:    status,
			CreatedAt: day.AddDate(0, 0, -9*i),
		}.Record())
	}

	roles := []string{"owner", "admin", "manager", "cashier", "cashier"}
	staff := []string{"Budi Santoso", "Siti Rahma", "Agus Pratama", "Dewi Lestari", "Rina Wati", "Joko Susilo", "Maya Sari", "Eko Saputra"}
	for i, name := range staff {
		status := domain.StatusActive
		if i == len(staff)-1 {
			status = domain.StatusInactive
		}
		s.Put("staff", domain.Staff{
			ID:        int64(i + 1),
			StoreID:   owned[i%len(owned)],
			Name:      name,
			Email:     strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@kasirinaja.id",
			Role:      roles[i%len(roles)],
			Status:    status,
			CreatedAt: day.AddDate(0, -i, 0),
		}.Record())
	}

	categories := []string{"rent", "salary", "utilities", "supplies"}
	payments := []string{"cash", "card", "transfer", "qris"}
	for i := 0; i < 24; i++ {
		category := categories[i%len(categories)]
		s.Put("expenses", domain.Expense{
			ID:          int64(i + 1),
			StoreID:     owned[i%len(owned)],
			Title:       fmt.Sprintf("%s #%d", strings.ToUpper(category[:1])+category[1:], i+1),
			Category:    category,
			PaymentType: payments[(i/2)%len(payments)],
			AmountCents: int64(50000 + 12500*i),
			SpentAt:     day.AddDate(0, 0, -2*i),
		}.Record())
	}

	suppliers := []string{"PT Sumber Makmur", "CV Jaya Abadi", "UD Berkah"}
	dueStatuses := []string{domain.DueStatusDue, domain.DueStatusOverdue, domain.DueStatusPaid}
	for i := 0; i < 10; i++ {
		s.Put("purchase_dues", domain.PurchaseDue{
			ID:         int64(i + 1),
			StoreID:    owned[i%len(owned)],
			Reference:  fmt.Sprintf("PO-%04d", 1001+i),
			SupplierID: int64(i%len(suppliers) + 1),
			Supplier:   suppliers[i%len(suppliers)],
			Status:     dueStatuses[i%len(dueStatuses)],
			DueCents:   int64(250000 * (i + 1)),
			DueDate:    day.AddDate(0, 0, 7*i-21),
			CreatedAt:  day.AddDate(0, 0, 7*i-35),
		}.Record())
	}

	for i := 0; i < 30; i++ {
		gross := int64(150000 + 7500*i)
		s.Put("income_entries", domain.IncomeEntry{
			ID:            int64(i + 1),
			StoreID:       owned[i%len(owned)],
			InvoiceNo:     fmt.Sprintf("INV-%s-%03d", day.Format("0601"), i+1),
			PaymentType:   payments[i%len(payments)],
			GrossCents:    gross,
			NetCents:      gross - gross/10,
			TransactionAt: day.AddDate(0, 0, -i),
		}.Record())
	}
	return s
}
