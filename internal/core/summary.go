package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Overview is the dashboard aggregate of a set of expenses. The sum of
// ByCategory always equals Total and Count is the number of input records.
type Overview struct {
	Total      decimal.Decimal
	Count      int
	ByCategory []CategoryAmount
}

// UncategorizedLabel is used for records with an empty category.
const UncategorizedLabel = "Uncategorized"

// Summarize groups expenses by category, preserving first-seen order.
func Summarize(records []Expense) Overview {
	idx := map[string]int{}
	ov := Overview{Total: decimal.Zero, Count: len(records)}
	for _, e := range records {
		name := e.Category
		if name == "" {
			name = UncategorizedLabel
		}
		i, ok := idx[name]
		if !ok {
			i = len(ov.ByCategory)
			idx[name] = i
			ov.ByCategory = append(ov.ByCategory, CategoryAmount{Name: name, Amount: decimal.Zero})
		}
		ov.ByCategory[i].Amount = ov.ByCategory[i].Amount.Add(e.Amount)
		ov.Total = ov.Total.Add(e.Amount)
	}
	return ov
}

// Max returns the largest category amount, or zero when there are none.
func (o Overview) Max() decimal.Decimal {
	max := decimal.Zero
	for _, c := range o.ByCategory {
		if c.Amount.GreaterThan(max) {
			max = c.Amount
		}
	}
	return max
}
