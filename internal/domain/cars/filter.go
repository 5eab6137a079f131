package cars

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseFilter reads brand, year, min_price, max_price, search, location and
// available_now from the query string. Prices are in cents.
func ParseFilter(q url.Values) (Filter, error) {
	f := Filter{
		Brand:    strings.TrimSpace(q.Get("brand")),
		Search:   strings.TrimSpace(q.Get("search")),
		Location: strings.TrimSpace(q.Get("location")),
	}

	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("invalid year: %w", err)
		}
		f.Year = year
	}

	if v := q.Get("min_price"); v != "" {
		p, err := strconv.ParseInt(v, 10, 64)
		if err != nil || p < 0 {
			return f, fmt.Errorf("invalid min_price: %q", v)
		}
		f.MinPrice = p
	}

	if v := q.Get("max_price"); v != "" {
		p, err := strconv.ParseInt(v, 10, 64)
		if err != nil || p < 0 {
			return f, fmt.Errorf("invalid max_price: %q", v)
		}
		f.MaxPrice = p
	}

	if f.MinPrice > 0 && f.MaxPrice > 0 && f.MinPrice > f.MaxPrice {
		return f, fmt.Errorf("min_price cannot exceed max_price")
	}

	if v := q.Get("available_now"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, fmt.Errorf("invalid available_now: %w", err)
		}
		f.AvailableNow = b
	}

	return f, nil
}

// where renders f as a SQL condition over alias c, with positional
// arguments starting at $1.
func (f Filter) where() (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Brand != "" {
		add("c.brand ILIKE $%d", f.Brand)
	}
	if f.Year > 0 {
		add("c.year = $%d", f.Year)
	}
	if f.MinPrice > 0 {
		add("c.price_cents >= $%d", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		add("c.price_cents <= $%d", f.MaxPrice)
	}
	if f.Location != "" {
		add("c.location ILIKE $%d", "%"+f.Location+"%")
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(c.name ILIKE $%d OR c.brand ILIKE $%d OR c.model ILIKE $%d OR c.description ILIKE $%d)", n, n, n, n))
	}
	if f.AvailableNow {
		conds = append(conds, `NOT EXISTS (
			SELECT 1 FROM bookings b
			WHERE b.car_id = c.id AND b.active
			  AND b.start_date <= CURRENT_DATE AND b.end_date >= CURRENT_DATE)`)
	}

	if len(conds) == 0 {
		return "TRUE", args
	}
	return strings.Join(conds, " AND "), args
}
