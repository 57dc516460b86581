package screens

import "kasirinaja/backoffice/internal/filter"

var statusOptions = []filter.Option{
	{Value: "active", Label: "Active"},
	{Value: "inactive", Label: "Inactive"},
}

var paymentOptions = []filter.Option{
	{Value: "cash", Label: "Cash"},
	{Value: "card", Label: "Card"},
	{Value: "transfer", Label: "Bank transfer"},
	{Value: "qris", Label: "QRIS"},
}

func statusField() Field {
	return Field{CustomFilterConfig: filter.CustomFilterConfig{
		Key:     "status",
		Label:   "Status",
		Type:    filter.FieldSelect,
		Options: statusOptions,
		Default: filter.All,
	}}
}

func paymentField() Field {
	return Field{CustomFilterConfig: filter.CustomFilterConfig{
		Key:     "payment_type",
		Label:   "Payment",
		Type:    filter.FieldSelect,
		Options: paymentOptions,
		Default: filter.All,
	}}
}

func builtinScreens() []Screen {
	return []Screen{
		{
			Name:          "brands",
			Title:         "Brands",
			Path:          "/brands",
			Table:         "brands",
			SearchColumns: []string{"name"},
			DateColumn:    "created_at",
			Columns:       []string{"id", "name", "status", "created_at"},
			Sortable:      []string{"name", "status", "created_at"},
			DefaultSort:   "name",
			Filters:       []Field{statusField()},
		},
		{
			Name:          "staff",
			Title:         "Employees",
			Path:          "/staff",
			Table:         "staff",
			SearchColumns: []string{"name", "email"},
			DateColumn:    "created_at",
			Columns:       []string{"id", "name", "email", "role", "status"},
			Sortable:      []string{"name", "email", "role", "created_at"},
			DefaultSort:   "name",
			Filters: []Field{
				{CustomFilterConfig: filter.CustomFilterConfig{
					Key:   "role",
					Label: "Role",
					Type:  filter.FieldMultiselect,
					Options: []filter.Option{
						{Value: "owner", Label: "Owner"},
						{Value: "admin", Label: "Admin"},
						{Value: "manager", Label: "Manager"},
						{Value: "cashier", Label: "Cashier"},
					},
				}},
				statusField(),
			},
		},
		{
			Name:             "expenses",
			Title:            "Expenses",
			Path:             "/expenses",
			Table:            "expenses",
			SearchColumns:    []string{"title", "category"},
			DateColumn:       "spent_at",
			Columns:          []string{"id", "title", "category", "payment_type", "amount_cents", "spent_at"},
			Sortable:         []string{"title", "category", "amount_cents", "spent_at"},
			DefaultSort:      "spent_at",
			DefaultDirection: "desc",
			Filters: []Field{
				paymentField(),
				{
					CustomFilterConfig: filter.CustomFilterConfig{
						Key:   "amount_min",
						Label: "Min amount",
						Type:  filter.FieldNumber,
						Param: "min_amount",
					},
					Column: "amount_cents",
					Op:     OpGte,
				},
			},
		},
		{
			Name:          "stores",
			Title:         "Stores",
			Path:          "/stores",
			Table:         "stores",
			StoreColumn:   "id",
			SearchColumns: []string{"name", "address"},
			Columns:       []string{"id", "name", "address", "status"},
			Sortable:      []string{"name", "status"},
			DefaultSort:   "name",
			Filters:       []Field{statusField()},
		},
		{
			Name:          "purchase_dues",
			Title:         "Purchase dues",
			Path:          "/purchase-dues",
			Table:         "purchase_dues",
			SearchColumns: []string{"reference", "supplier"},
			DateColumn:    "due_date",
			Columns:       []string{"id", "reference", "supplier", "status", "due_cents", "due_date"},
			Sortable:      []string{"reference", "supplier", "due_cents", "due_date"},
			DefaultSort:   "due_date",
			Filters: []Field{
				{CustomFilterConfig: filter.CustomFilterConfig{
					Key:   "supplier_id",
					Label: "Supplier",
					Type:  filter.FieldNumber,
				}},
				{CustomFilterConfig: filter.CustomFilterConfig{
					Key:   "status",
					Label: "Status",
					Type:  filter.FieldSelect,
					Options: []filter.Option{
						{Value: "due", Label: "Due"},
						{Value: "overdue", Label: "Overdue"},
						{Value: "paid", Label: "Paid"},
					},
					Default: filter.All,
				}},
			},
		},
		{
			Name:             "income_report",
			Title:            "Income report",
			Path:             "/reports/income",
			Table:            "income_entries",
			SearchColumns:    []string{"invoice_no"},
			DateColumn:       "transaction_at",
			StartKey:         "from_date",
			EndKey:           "to_date",
			Columns:          []string{"id", "invoice_no", "payment_type", "gross_cents", "net_cents", "transaction_at"},
			Sortable:         []string{"transaction_at", "gross_cents", "net_cents"},
			DefaultSort:      "transaction_at",
			DefaultDirection: "desc",
			Filters:          []Field{paymentField()},
		},
	}
}

// Builtin returns a fresh registry of the standard back-office screens.
func Builtin() *Registry {
	r, err := NewRegistry(builtinScreens()...)
	if err != nil {
		panic(err)
	}
	return r
}
