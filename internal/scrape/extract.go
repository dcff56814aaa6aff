package scrape

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/vvka-141/pgingest/pkg/pgingest"
)

// footnotePattern matches reference markers such as "[1]" or "[note 3]".
var footnotePattern = regexp.MustCompile(`\[[^\]]*\]`)

// BankRow is one extracted table row before conversion.
type BankRow struct {
	Rank      string
	Bank      string
	MarketCap decimal.Decimal
}

// Extraction is the outcome of reading the marker table.
type Extraction struct {
	Rows []BankRow

	// Skipped counts rows with three or more cells whose amount did not parse.
	Skipped int
}

// ExtractBanks reads the first table carrying class tableClass. The first
// row is the header. Every later row with at least three td cells yields
// rank, bank name and market cap from its first three cells; rows whose
// amount does not parse are skipped.
//
// ErrEmptyResult is returned when no table matches or no row survives.
func ExtractBanks(doc *goquery.Document, tableClass string) (*Extraction, error) {
	table := doc.Find("table." + tableClass).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no table with class %q: %w", tableClass, pgingest.ErrEmptyResult)
	}

	out := &Extraction{}
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := tr.ChildrenFiltered("td")
		if cells.Length() < 3 {
			return
		}
		amount, err := CleanAmount(cells.Eq(2).Text())
		if err != nil {
			out.Skipped++
			return
		}
		out.Rows = append(out.Rows, BankRow{
			Rank:      cellText(cells.Eq(0)),
			Bank:      cellText(cells.Eq(1)),
			MarketCap: amount,
		})
	})

	if len(out.Rows) == 0 {
		return out, fmt.Errorf("table with class %q has no usable rows: %w", tableClass, pgingest.ErrEmptyResult)
	}
	return out, nil
}

func cellText(s *goquery.Selection) string {
	text := footnotePattern.ReplaceAllString(s.Text(), "")
	return strings.Join(strings.Fields(text), " ")
}

// CleanAmount parses a market cap cell such as "$1,234.5 billion[2]".
// Currency sign, the word billion, thousands separators, footnote markers
// and whitespace are removed before parsing.
func CleanAmount(s string) (decimal.Decimal, error) {
	v := footnotePattern.ReplaceAllString(s, "")
	v = strings.ToLower(v)
	v = strings.NewReplacer("billion", "", "us$", "", "$", "", ",", "", "\u00a0", "", " ", "").Replace(v)
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero, fmt.Errorf("empty amount %q: %w", s, pgingest.ErrParse)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q: %w", s, pgingest.ErrParse)
	}
	return d, nil
}
