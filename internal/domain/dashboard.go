package domain

// ============================================================
// Dashboard API types
// ============================================================

// DashboardSummary is returned by GET /v1/data/dashboard.
type DashboardSummary struct {
	Year               int                 `json:"year"`
	TotalRevenue       float64             `json:"totalRevenue"`
	TotalSales         int                 `json:"totalSales"`
	AvgOrderValue      float64             `json:"avgOrderValue"`
	CategoryData       []NamedValue        `json:"categoryData"`
	RevenueData        RevenueSeries       `json:"revenueData"`
	RecentTransactions []RecentTransaction `json:"recentTransactions"`
}

// NamedValue is a single labelled amount, used for chart series.
type NamedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// RevenueSeries groups revenue time series. Quarterly and Yearly are
// reserved and always empty.
type RevenueSeries struct {
	Monthly   []NamedValue `json:"monthly"`
	Quarterly []NamedValue `json:"quarterly"`
	Yearly    []NamedValue `json:"yearly"`
}

// RecentTransaction is a display projection of a FinancialRecord.
type RecentTransaction struct {
	ID       string  `json:"id"`
	Date     string  `json:"date"`
	Customer string  `json:"customer"`
	Amount   float64 `json:"amount"`
	Status   string  `json:"status"`
}

// TransactionStatusCompleted is the only status records can have; there
// is no status model behind it.
const TransactionStatusCompleted = "completed"
