package statement

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadCSV reads a statement exported as comma-separated values.
func LoadCSV(r io.Reader, name string, kind Kind, source Source) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	grid, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv %s: %w", name, err)
	}
	return NewTable(name, kind, source, grid)
}

// LoadFile dispatches on the file extension.
func LoadFile(path string, kind Kind, source Source) (*Table, error) {
	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx":
		return LoadXLSX(path, kind, source)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return LoadCSV(f, name, kind, source)
	case ".html", ".htm", ".xls":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if !looksLikeHTML(data) {
			return nil, fmt.Errorf("unsupported legacy binary workbook %s: re-export as .xlsx", name)
		}
		return LoadHTML(bytes.NewReader(data), name, kind, source)
	default:
		return nil, fmt.Errorf("unsupported statement file %s", name)
	}
}

func looksLikeHTML(data []byte) bool {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("<"))
}

var (
	historyDirNames  = []string{"fy", "annual", "history", "10-k", "10k"}
	trailingDirNames = []string{"ltm", "ttm", "trailing", "quarterly", "10-q", "10q"}
	statementExts    = map[string]bool{".xlsx": true, ".xlsm": true, ".xltx": true, ".csv": true, ".html": true, ".htm": true, ".xls": true}
)

// sourceFile is a statement file discovered in a company folder.
type sourceFile struct {
	path   string
	source Source
}

// Dataset is the set of statement tables loaded for one company.
type Dataset struct {
	Dir      string
	Hash     string
	History  map[Kind]*Table
	Trailing map[Kind]*Table
}

// Table returns the table for a source and kind, or nil.
func (d *Dataset) Table(source Source, kind Kind) *Table {
	if d == nil {
		return nil
	}
	if source == Trailing {
		return d.Trailing[kind]
	}
	return d.History[kind]
}

// NewDataset assembles a dataset from already-built tables. Used by tests
// and by callers that parse statements themselves.
func NewDataset(tables ...*Table) *Dataset {
	ds := &Dataset{History: make(map[Kind]*Table), Trailing: make(map[Kind]*Table)}
	for _, t := range tables {
		if t.Source() == Trailing {
			ds.Trailing[t.Kind()] = t
		} else {
			ds.History[t.Kind()] = t
		}
	}
	return ds
}

// LoadDir loads a company folder. History statements live in a sub-folder
// named like FY/annual/history and trailing ones in LTM/TTM/trailing. A flat
// folder is also accepted: files whose name mentions ltm/ttm/quarter are
// trailing, the rest history.
func LoadDir(dir string) (*Dataset, error) {
	files, err := scanDir(dir)
	if err != nil {
		return nil, err
	}
	hash, err := hashFiles(files)
	if err != nil {
		return nil, err
	}

	ds := NewDataset()
	ds.Dir = dir
	ds.Hash = hash

	for _, sf := range files {
		target := ds.History
		if sf.source == Trailing {
			target = ds.Trailing
		}

		kind, ok := ClassifyName(strings.TrimSuffix(filepath.Base(sf.path), filepath.Ext(sf.path)))
		if !ok {
			ext := strings.ToLower(filepath.Ext(sf.path))
			if ext != ".xlsx" && ext != ".xlsm" {
				continue
			}
			sheets, err := LoadWorkbook(sf.path, sf.source)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", sf.path, err)
			}
			for k, t := range sheets {
				if target[k] == nil {
					target[k] = t
				}
			}
			continue
		}
		if target[kind] != nil {
			continue
		}
		t, err := LoadFile(sf.path, kind, sf.source)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", sf.path, err)
		}
		target[kind] = t
	}

	if len(ds.History) == 0 && len(ds.Trailing) == 0 {
		return nil, fmt.Errorf("no statement files found in %s", dir)
	}
	return ds, nil
}

// HashDir returns the content hash LoadDir would assign to dir without
// parsing any statement.
func HashDir(dir string) (string, error) {
	files, err := scanDir(dir)
	if err != nil {
		return "", err
	}
	return hashFiles(files)
}

func scanDir(dir string) ([]sourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset dir: %w", err)
	}

	var files []sourceFile
	for _, e := range entries {
		name := e.Name()
		if skipName(name) {
			continue
		}
		path := filepath.Join(dir, name)
		if e.IsDir() {
			source, ok := classifyDir(name)
			if !ok {
				continue
			}
			sub, err := os.ReadDir(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			for _, s := range sub {
				if !s.IsDir() && !skipName(s.Name()) && isStatementFile(s.Name()) {
					files = append(files, sourceFile{path: filepath.Join(path, s.Name()), source: source})
				}
			}
			continue
		}
		if !isStatementFile(name) {
			continue
		}
		source := History
		lower := strings.ToLower(name)
		for _, marker := range []string{"ltm", "ttm", "quarter", "trailing"} {
			if strings.Contains(lower, marker) {
				source = Trailing
				break
			}
		}
		files = append(files, sourceFile{path: path, source: source})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	return files, nil
}

func classifyDir(name string) (Source, bool) {
	lower := strings.ToLower(name)
	for _, n := range historyDirNames {
		if lower == n {
			return History, true
		}
	}
	for _, n := range trailingDirNames {
		if lower == n {
			return Trailing, true
		}
	}
	return "", false
}

// skipName filters hidden files and office lock files.
func skipName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$")
}

func isStatementFile(name string) bool {
	return statementExts[strings.ToLower(filepath.Ext(name))]
}

// hashFiles returns an MD5 over file names and contents, used as the cache
// key of a dataset.
func hashFiles(files []sourceFile) (string, error) {
	h := md5.New()
	for _, sf := range files {
		f, err := os.Open(sf.path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s|%s|", sf.source, filepath.Base(sf.path))
		_, err = io.Copy(h, bufio.NewReader(f))
		f.Close()
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
