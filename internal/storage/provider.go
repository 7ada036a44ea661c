// Package storage defines the persisted row shape shared by every job sink.
// Backends live in subpackages (postgres, mysql, sqlite, memory) and all write
// the same logical columns, one row per job, one transaction per page.
package storage

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/JakeFAU/jobstreet-scraper/internal/crawler"
	"github.com/JakeFAU/jobstreet-scraper/internal/relativedate"
)

// DefaultTable is the destination table when none is configured.
const DefaultTable = "jaws"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Columns lists the persisted columns in insert order.
var Columns = []string{
	"ExtractionDate",
	"JobTitle",
	"CompanyName",
	"Location",
	"Category",
	"SubCategory",
	"Salary",
	"JobDescription",
	"Posted",
	"DatePosted",
}

// Row is one persisted job.
type Row struct {
	ExtractionDate string  `gorm:"column:ExtractionDate"`
	JobTitle       string  `gorm:"column:JobTitle"`
	CompanyName    string  `gorm:"column:CompanyName"`
	Location       string  `gorm:"column:Location"`
	Category       string  `gorm:"column:Category"`
	SubCategory    string  `gorm:"column:SubCategory"`
	Salary         string  `gorm:"column:Salary"`
	JobDescription string  `gorm:"column:JobDescription"`
	Posted         string  `gorm:"column:Posted"`
	DatePosted     *string `gorm:"column:DatePosted"`
}

// NewRows converts records into rows stamped with extractedAt's calendar day.
func NewRows(records []crawler.JobRecord, extractedAt time.Time) []Row {
	extractionDate := extractedAt.Format(crawler.DateLayout)
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, Row{
			ExtractionDate: extractionDate,
			JobTitle:       r.Title,
			CompanyName:    r.CompanyName,
			Location:       r.Location,
			Category:       r.Category,
			SubCategory:    r.SubCategory,
			Salary:         r.Salary,
			JobDescription: r.Description,
			Posted:         r.Posted,
			DatePosted:     relativedate.Format(r.PostedDate),
		})
	}
	return rows
}

// Args returns the row's values in Columns order; a missing DatePosted is NULL.
func (r Row) Args() []any {
	var datePosted any
	if r.DatePosted != nil {
		datePosted = *r.DatePosted
	}
	return []any{
		r.ExtractionDate,
		r.JobTitle,
		r.CompanyName,
		r.Location,
		r.Category,
		r.SubCategory,
		r.Salary,
		r.JobDescription,
		r.Posted,
		datePosted,
	}
}

// TableName resolves and validates the configured table.
func TableName(table string) (string, error) {
	if table == "" {
		return DefaultTable, nil
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// InsertSQL builds a single-row insert using placeholder(i) for the i-th (1-based) value.
func InsertSQL(table string, placeholder func(i int) string) string {
	marks := make([]string, len(Columns))
	for i := range Columns {
		marks[i] = placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(Columns, ", "), strings.Join(marks, ", "))
}
