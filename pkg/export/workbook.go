package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"sunocrawl/pkg/logger"
	"sunocrawl/pkg/storage"
)

// AllSheet is the sheet holding every collection's rows
const AllSheet = "ALL"

// ErrNoClips is returned when no artifact holds any item
var ErrNoClips = errors.New("no *_clips.json files found or they contain no clips")

// Collection is one artifact prepared for the workbook
type Collection struct {
	Name      string
	ProjectID string
	Rows      []map[string]interface{}
}

// artifactFile is the on-disk artifact; older dumps use project_clips
type artifactFile struct {
	ProjectID    string                   `json:"project_id"`
	Name         string                   `json:"name"`
	Items        []map[string]interface{} `json:"items"`
	ProjectClips []map[string]interface{} `json:"project_clips"`
}

// LoadCollection reads one artifact and flattens its items into rows
func LoadCollection(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var a artifactFile
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	name := a.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), storage.ArtifactSuffix)
	}
	items := a.Items
	if items == nil {
		items = a.ProjectClips
	}

	c := &Collection{Name: name, ProjectID: a.ProjectID}
	for _, item := range items {
		row := Flatten(item)
		row["project_name"] = name
		row["project_id"] = a.ProjectID
		c.Rows = append(c.Rows, row)
	}
	return c, nil
}

// WorkbookPath returns suno_clips_<date>.xlsx in dir, or the first free
// suno_clips_<date>_<n>.xlsx when that exists
func WorkbookPath(dir string, now time.Time) string {
	base := "suno_clips_" + now.Format("2006-01-02")
	path := filepath.Join(dir, base+".xlsx")
	for i := 1; fileExists(path); i++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.xlsx", base, i))
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Builder assembles the workbook from a directory of artifacts
type Builder struct {
	logger logger.Logger
	now    func() time.Time
}

// NewBuilder creates a workbook builder
func NewBuilder(log logger.Logger) *Builder {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Builder{logger: log, now: time.Now}
}

// Build reads every artifact in dumpDir and writes a workbook into outDir
// with an ALL sheet followed by one sheet per non-empty collection. It
// returns the workbook path.
func (b *Builder) Build(dumpDir, outDir string) (string, error) {
	paths, err := storage.ListArtifacts(dumpDir)
	if err != nil {
		return "", err
	}

	var collections []*Collection
	var all []map[string]interface{}
	for _, p := range paths {
		c, err := LoadCollection(p)
		if err != nil {
			b.logger.WithError(err).WarnWithFields("Skipping unreadable artifact", map[string]interface{}{"path": p})
			continue
		}
		if len(c.Rows) == 0 {
			continue
		}
		collections = append(collections, c)
		all = append(all, c.Rows...)
	}
	if len(all) == 0 {
		return "", ErrNoClips
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create workbook directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName(f.GetSheetName(0), AllSheet); err != nil {
		return "", fmt.Errorf("failed to name %s sheet: %w", AllSheet, err)
	}
	if err := writeSheet(f, AllSheet, all, header); err != nil {
		return "", err
	}

	taken := map[string]bool{strings.ToLower(AllSheet): true}
	for _, c := range collections {
		name := UniqueSheetName(c.Name, taken)
		if _, err := f.NewSheet(name); err != nil {
			return "", fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, c.Rows, header); err != nil {
			return "", err
		}
	}
	f.SetActiveSheet(0)

	path := WorkbookPath(outDir, b.now())
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	b.logger.InfoWithFields("Workbook written", map[string]interface{}{
		"path":        path,
		"collections": len(collections),
		"rows":        len(all),
	})
	return path, nil
}

// writeSheet streams a header row and the data rows into sheet
func writeSheet(f *excelize.File, sheet string, rows []map[string]interface{}, headerStyle int) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet %q: %w", sheet, err)
	}

	columns := Columns(rows)
	head := make([]interface{}, len(columns))
	for i, c := range columns {
		head[i] = excelize.Cell{StyleID: headerStyle, Value: c}
	}
	if err := sw.SetRow("A1", head); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", sheet, err)
	}

	for r, row := range rows {
		values := make([]interface{}, len(columns))
		for i, c := range columns {
			values[i] = cellValue(row[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", r+2, sheet, err)
		}
	}

	return sw.Flush()
}
