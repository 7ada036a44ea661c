// Package extract maps listing markup into job records using goquery.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobstreet-scraper/internal/crawler"
)

// Selectors locate each field inside a listing container.
type Selectors struct {
	Listing         string `mapstructure:"listing"`
	Title           string `mapstructure:"title"`
	Company         string `mapstructure:"company"`
	Location        string `mapstructure:"location"`
	Salary          string `mapstructure:"salary"`
	Category        string `mapstructure:"category"`
	SubCategory     string `mapstructure:"sub_category"`
	Description     string `mapstructure:"description"`
	DescriptionItem string `mapstructure:"description_item"`
	Posted          string `mapstructure:"posted"`
}

// DefaultSelectors matches the jobstreet listing markup.
func DefaultSelectors() Selectors {
	return Selectors{
		Listing:         "article",
		Title:           "h3",
		Company:         `a[data-automation="jobCompany"]`,
		Location:        `a[data-automation="jobLocation"]`,
		Salary:          `span[data-automation="jobSalary"]`,
		Category:        `a[data-automation="jobClassification"]`,
		SubCategory:     `a[data-automation="jobSubClassification"]`,
		Description:     "ul._1wkzzau0._1wkzzau3.szurmz0.szurmz4",
		DescriptionItem: "li",
		Posted:          `span[data-automation="jobListingDate"]`,
	}
}

// field binds a selector to a record slot. Required fields drop the
// record when absent or blank; the rest fall back to crawler.NotAvailable.
type field struct {
	name     string
	selector string
	required bool
	assign   func(*crawler.JobRecord, string)
}

// Extractor implements crawler.PageExtractor.
type Extractor struct {
	sel    Selectors
	fields []field
	dates  crawler.DateNormalizer
	logger *zap.Logger
}

// New builds an Extractor. Empty selectors are filled from DefaultSelectors.
func New(sel Selectors, dates crawler.DateNormalizer, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	sel = withDefaults(sel)
	return &Extractor{
		sel:    sel,
		fields: fieldPolicy(sel),
		dates:  dates,
		logger: logger,
	}
}

func fieldPolicy(sel Selectors) []field {
	return []field{
		{name: "title", selector: sel.Title, required: true, assign: func(r *crawler.JobRecord, v string) { r.Title = v }},
		{name: "company", selector: sel.Company, assign: func(r *crawler.JobRecord, v string) { r.CompanyName = v }},
		{name: "location", selector: sel.Location, assign: func(r *crawler.JobRecord, v string) { r.Location = v }},
		{name: "salary", selector: sel.Salary, assign: func(r *crawler.JobRecord, v string) { r.Salary = v }},
		{name: "category", selector: sel.Category, assign: func(r *crawler.JobRecord, v string) { r.Category = v }},
		{name: "sub_category", selector: sel.SubCategory, assign: func(r *crawler.JobRecord, v string) { r.SubCategory = v }},
		{name: "posted", selector: sel.Posted, assign: func(r *crawler.JobRecord, v string) { r.Posted = v }},
	}
}

func withDefaults(sel Selectors) Selectors {
	def := DefaultSelectors()
	pick := func(v, fallback string) string {
		if strings.TrimSpace(v) == "" {
			return fallback
		}
		return v
	}
	return Selectors{
		Listing:         pick(sel.Listing, def.Listing),
		Title:           pick(sel.Title, def.Title),
		Company:         pick(sel.Company, def.Company),
		Location:        pick(sel.Location, def.Location),
		Salary:          pick(sel.Salary, def.Salary),
		Category:        pick(sel.Category, def.Category),
		SubCategory:     pick(sel.SubCategory, def.SubCategory),
		Description:     pick(sel.Description, def.Description),
		DescriptionItem: pick(sel.DescriptionItem, def.DescriptionItem),
		Posted:          pick(sel.Posted, def.Posted),
	}
}

// ExtractPage parses content and extracts every listing in document order.
// Listings that fail extraction are skipped.
func (e *Extractor) ExtractPage(content []byte) (crawler.PageResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", crawler.ErrParse, err)
	}

	listings := doc.Find(e.sel.Listing)
	result := make(crawler.PageResult, 0, listings.Length())
	skipped := 0
	listings.Each(func(_ int, listing *goquery.Selection) {
		record, ok := e.ExtractRecord(listing)
		if !ok {
			skipped++
			return
		}
		result = append(result, record)
	})
	if skipped > 0 {
		e.logger.Debug("listings skipped", zap.Int("skipped", skipped), zap.Int("extracted", len(result)))
	}
	return result, nil
}

// ExtractRecord maps one listing container to a JobRecord. It reports false
// when the title is missing or blank, or when the listing cannot be read.
func (e *Extractor) ExtractRecord(listing *goquery.Selection) (record crawler.JobRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extraction failed", zap.Any("panic", r))
			record, ok = crawler.JobRecord{}, false
		}
	}()

	for _, f := range e.fields {
		value, found := lookup(listing, f.selector)
		if f.required && value == "" {
			e.logger.Debug("listing missing required field", zap.String("field", f.name))
			return crawler.JobRecord{}, false
		}
		if !found {
			value = crawler.NotAvailable
		}
		f.assign(&record, value)
	}
	record.Description = e.description(listing)
	if record.Posted != crawler.NotAvailable && e.dates != nil {
		record.PostedDate = e.dates.Normalize(record.Posted)
	}
	return record, true
}

func (e *Extractor) description(listing *goquery.Selection) string {
	list := listing.Find(e.sel.Description).First()
	if list.Length() == 0 {
		return crawler.NotAvailable
	}
	var items []string
	list.Find(e.sel.DescriptionItem).Each(func(_ int, item *goquery.Selection) {
		text := item.Find("span").First()
		if text.Length() == 0 {
			text = item
		}
		items = append(items, strings.TrimSpace(text.Text()))
	})
	return strings.Join(items, ". ")
}

// lookup returns the trimmed text of the first match, reporting absence
// instead of failing.
func lookup(listing *goquery.Selection, selector string) (string, bool) {
	match := listing.Find(selector).First()
	if match.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(match.Text()), true
}
