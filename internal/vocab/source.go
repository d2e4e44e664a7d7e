package vocab

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	DefaultSlangSheet = "Slang_Colloquial"
	defaultCacheTTL   = 10 * time.Minute
)

// Entry is one vocabulary row. Theme is the sheet it came from.
type Entry struct {
	Theme   string
	German  string
	English string
	Example string
	Prompt  string
}

// Slang is one row of the slang sheet.
type Slang struct {
	Expression string
	English    string
	Example    string
}

// Source loads vocabulary from a workbook, caching the parsed rows until
// the TTL passes or the file changes.
type Source struct {
	path       string
	slangSheet string
	cache      *Cache
}

func NewSource(path, slangSheet string) *Source {
	if slangSheet == "" {
		slangSheet = DefaultSlangSheet
	}
	return &Source{path: path, slangSheet: slangSheet, cache: NewCache(defaultCacheTTL)}
}

type contents struct {
	entries []Entry
	slang   []Slang
}

func (s *Source) Entries() ([]Entry, error) {
	c, err := s.load()
	if err != nil {
		return nil, err
	}
	return c.entries, nil
}

func (s *Source) Slang() ([]Slang, error) {
	c, err := s.load()
	if err != nil {
		return nil, err
	}
	return c.slang, nil
}

func (s *Source) load() (contents, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return contents{}, fmt.Errorf("checking vocabulary workbook: %w", err)
	}
	if c, ok := s.cache.Get(info.ModTime()); ok {
		return c, nil
	}

	c, err := s.read()
	if err != nil {
		return contents{}, err
	}
	s.cache.Set(info.ModTime(), c)
	return c, nil
}

func (s *Source) read() (contents, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return contents{}, fmt.Errorf("opening vocabulary workbook: %w", err)
	}
	defer f.Close()

	var c contents
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return contents{}, fmt.Errorf("reading sheet %q: %w", sheet, err)
		}
		if sheet == s.slangSheet {
			slang, err := parseSlang(sheet, rows)
			if err != nil {
				return contents{}, err
			}
			c.slang = slang
			continue
		}
		entries, err := parseEntries(sheet, rows)
		if err != nil {
			return contents{}, err
		}
		c.entries = append(c.entries, entries...)
	}
	return c, nil
}

// table gives by-name access to a sheet's rows; row 0 is the header.
type table struct {
	sheet   string
	columns map[string]int
}

func newTable(sheet string, rows [][]string, required ...string) (*table, error) {
	t := &table{sheet: sheet, columns: map[string]int{}}
	if len(rows) == 0 {
		return t, nil
	}
	for i, name := range rows[0] {
		t.columns[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := t.columns[name]; !ok {
			return nil, fmt.Errorf("sheet %q: missing column %q", sheet, name)
		}
	}
	return t, nil
}

func (t *table) cell(row []string, name string) string {
	i, ok := t.columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseEntries(sheet string, rows [][]string) ([]Entry, error) {
	t, err := newTable(sheet, rows, "German", "English", "Example (DE)")
	if err != nil || len(rows) < 2 {
		return nil, err
	}
	var out []Entry
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, Entry{
			Theme:   sheet,
			German:  t.cell(row, "German"),
			English: t.cell(row, "English"),
			Example: t.cell(row, "Example (DE)"),
			Prompt:  t.cell(row, "Small-talk prompt (DE)"),
		})
	}
	return out, nil
}

func parseSlang(sheet string, rows [][]string) ([]Slang, error) {
	t, err := newTable(sheet, rows, "Expression (DE)", "English", "Example (DE)")
	if err != nil || len(rows) < 2 {
		return nil, err
	}
	var out []Slang
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, Slang{
			Expression: t.cell(row, "Expression (DE)"),
			English:    t.cell(row, "English"),
			Example:    t.cell(row, "Example (DE)"),
		})
	}
	return out, nil
}

// Cache holds the parsed workbook for a limited time.
type Cache struct {
	mu        sync.RWMutex
	data      *contents
	modTime   time.Time
	fetchedAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, now: time.Now}
}

// Get returns cached contents read from a file with the given mod time.
func (c *Cache) Get(modTime time.Time) (contents, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.data == nil || !c.modTime.Equal(modTime) || c.now().Sub(c.fetchedAt) > c.ttl {
		return contents{}, false
	}
	return *c.data, true
}

func (c *Cache) Set(modTime time.Time, data contents) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = &data
	c.modTime = modTime
	c.fetchedAt = c.now()
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = nil
}
