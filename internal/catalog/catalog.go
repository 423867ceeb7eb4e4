package catalog

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"salescoach/internal/domain"
)

var columns = []string{"id", "name", "series", "craft", "meaning", "price_yuan", "weight_g", "description"}

// Store loads the product table on first use and keeps it for the process lifetime.
type Store struct {
	path string

	mu       sync.Mutex
	products []domain.Product
	loaded   bool
}

// NewStore returns a store reading from path (.csv or .xlsx).
func NewStore(path string) *Store {
	return &Store{path: path}
}

// NewStatic returns a store that serves the given products without touching disk.
func NewStatic(products []domain.Product) *Store {
	return &Store{products: products, loaded: true}
}

// Path returns the configured catalog location.
func (s *Store) Path() string { return s.path }

// Products returns the catalog in file order. Failed loads are retried on the next call.
func (s *Store) Products() ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.products, nil
	}
	products, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", s.path).Int("products", len(products)).Msg("catalog loaded")
	s.products = products
	s.loaded = true
	return s.products, nil
}

// Load reads and validates a catalog file.
func Load(path string) ([]domain.Product, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	return parseRows(rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog")
	}
	defer f.Close()
	return readCSVFrom(f)
}

func readCSVFrom(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read catalog csv")
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog workbook")
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("catalog workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %s", sheets[0])
	}
	return rows, nil
}

func parseRows(rows [][]string) ([]domain.Product, error) {
	if len(rows) == 0 {
		return nil, errors.New("catalog is empty")
	}
	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range columns {
		if _, ok := header[c]; !ok {
			return nil, errors.Errorf("catalog missing column %q", c)
		}
	}

	seen := make(map[int64]struct{}, len(rows)-1)
	products := make([]domain.Product, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		if isBlank(row) {
			continue
		}
		get := func(col string) string {
			i := header[col]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		id, err := strconv.ParseInt(get("id"), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: bad id", line)
		}
		if _, dup := seen[id]; dup {
			return nil, errors.Errorf("row %d: duplicate product id %d", line, id)
		}
		seen[id] = struct{}{}
		price, err := parseNumber(get("price_yuan"))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: bad price_yuan", line)
		}
		weight, err := parseNumber(get("weight_g"))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d: bad weight_g", line)
		}
		products = append(products, domain.Product{
			ID:          id,
			Name:        get("name"),
			Series:      get("series"),
			Craft:       get("craft"),
			Meaning:     get("meaning"),
			PriceYuan:   price,
			WeightG:     weight,
			Description: get("description"),
		})
	}
	return products, nil
}

func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
