// Package session keeps an operator's editable list of measurements on disk
// between command invocations, together with the last analysis computed from it.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/effluent-cli/internal/catalog"
	"github.com/KaramelBytes/effluent-cli/internal/engine"
	"github.com/KaramelBytes/effluent-cli/internal/utils"
	"github.com/google/uuid"
)

var (
	// ErrLastRow is returned when removing the only remaining row.
	ErrLastRow = errors.New("cannot remove the only row; use clear instead")
	// ErrDuplicateAnalyte is returned when an analyte is already selected in another row.
	ErrDuplicateAnalyte = errors.New("analyte already selected in another row")
	// ErrUnknownAnalyte is returned when an analyte is not in the active mode's table.
	ErrUnknownAnalyte = errors.New("analyte not in the active threshold table")
	// ErrRowRange is returned for a row index outside the list.
	ErrRowRange = errors.New("row index out of range")
)

// Session is a named entry list persisted as session.json.
type Session struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Mode      catalog.Mode   `json:"mode"`
	Entries   []engine.Entry `json:"entries"`
	LastRun   *engine.Report `json:"last_run,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	// Not serialized: on-disk location of the session.json
	rootDir string `json:"-"`
}

// New constructs an in-memory session holding one blank row. Call Save() to persist.
func New(name string, mode catalog.Mode, rootDir string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Name:      name,
		Mode:      mode,
		Entries:   []engine.Entry{engine.BlankEntry()},
		CreatedAt: now,
		UpdatedAt: now,
		rootDir:   rootDir,
	}
}

// Load reads session.json from dir.
func Load(dir string) (*Session, error) {
	path := filepath.Join(dir, utils.SessionFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("session not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if !s.Mode.Valid() {
		return nil, &catalog.ConfigurationError{Mode: s.Mode, Reason: "session " + s.Name + " has an unknown pH mode"}
	}
	if len(s.Entries) == 0 {
		s.Entries = []engine.Entry{engine.BlankEntry()}
	}
	s.rootDir = dir
	return &s, nil
}

// List returns the sessions found directly under root, sorted by name.
// Directories without a readable session.json are skipped.
func List(root string) ([]*Session, error) {
	dirs, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}
	var out []*Session
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		s, err := Load(filepath.Join(root, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RootDir returns the on-disk session directory path.
func (s *Session) RootDir() string { return s.rootDir }

// Save writes session.json using atomic write.
func (s *Session) Save() error {
	if s.rootDir == "" {
		return errors.New("session root directory not set")
	}
	if err := utils.EnsureDir(s.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(s)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(s.rootDir, utils.SessionFileName), data)
}

// AddRow appends e after validating it against table. A zero Entry adds a blank row.
func (s *Session) AddRow(e engine.Entry, table *catalog.Table) error {
	e, err := s.check(-1, e, table)
	if err != nil {
		return err
	}
	s.Entries = append(s.Entries, e)
	s.touch()
	return nil
}

// SetRow replaces row i (0-based). Nil fields unset the corresponding value.
func (s *Session) SetRow(i int, e engine.Entry, table *catalog.Table) error {
	if i < 0 || i >= len(s.Entries) {
		return fmt.Errorf("%w: %d (have %d rows)", ErrRowRange, i+1, len(s.Entries))
	}
	e, err := s.check(i, e, table)
	if err != nil {
		return err
	}
	s.Entries[i] = e
	s.touch()
	return nil
}

// RemoveRow deletes row i (0-based). The last remaining row cannot be removed.
func (s *Session) RemoveRow(i int) error {
	if i < 0 || i >= len(s.Entries) {
		return fmt.Errorf("%w: %d (have %d rows)", ErrRowRange, i+1, len(s.Entries))
	}
	if len(s.Entries) == 1 {
		return ErrLastRow
	}
	s.Entries = append(s.Entries[:i], s.Entries[i+1:]...)
	s.touch()
	return nil
}

// Clear resets the list to one blank row.
func (s *Session) Clear() {
	s.Entries = []engine.Entry{engine.BlankEntry()}
	s.touch()
}

// SetMode switches the pH regime. Analytes the new table does not know are
// unset, as is any row that resolves to an analyte an earlier row already
// holds; concentrations are kept.
func (s *Session) SetMode(table *catalog.Table) {
	s.Mode = table.Mode()
	claimed := make(map[string]bool, len(s.Entries))
	for i, e := range s.Entries {
		if e.Analyte == nil {
			continue
		}
		th, ok := table.Lookup(*e.Analyte)
		if !ok || claimed[th.Analyte] {
			s.Entries[i].Analyte = nil
			continue
		}
		claimed[th.Analyte] = true
		name := th.Analyte
		s.Entries[i].Analyte = &name
	}
	s.touch()
}

// Analyze recomputes the report from the current entries and stores it as
// LastRun. With nothing eligible LastRun is cleared and
// engine.ErrNoEligibleEntries is returned.
func (s *Session) Analyze(table *catalog.Table) (*engine.Report, error) {
	if table.Mode() != s.Mode {
		return nil, &catalog.ConfigurationError{Mode: table.Mode(), Reason: "table does not match session mode " + s.Mode.String()}
	}
	rep, err := engine.Analyze(s.Entries, table)
	s.LastRun = rep
	s.UpdatedAt = time.Now().UTC()
	return rep, err
}

// Available lists analytes from table not yet selected in rows other than skip.
func (s *Session) Available(table *catalog.Table, skip int) []string {
	used := s.selected(skip)
	var out []string
	for _, name := range table.Names() {
		if !used[name] {
			out = append(out, name)
		}
	}
	return out
}

// check canonicalises e against table and enforces the row rules.
func (s *Session) check(row int, e engine.Entry, table *catalog.Table) (engine.Entry, error) {
	if e.Concentration != nil {
		c := *e.Concentration
		if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
			return e, fmt.Errorf("concentration must be a number of at least 0, got %v", c)
		}
	}
	if e.Analyte == nil {
		return e, nil
	}
	if strings.TrimSpace(*e.Analyte) == "" {
		e.Analyte = nil
		return e, nil
	}
	th, ok := table.Lookup(*e.Analyte)
	if !ok {
		return e, fmt.Errorf("%w: %q (%s)", ErrUnknownAnalyte, *e.Analyte, table.Mode())
	}
	if s.selected(row)[th.Analyte] {
		return e, fmt.Errorf("%w: %s", ErrDuplicateAnalyte, th.Analyte)
	}
	name := th.Analyte
	e.Analyte = &name
	return e, nil
}

func (s *Session) selected(skip int) map[string]bool {
	used := make(map[string]bool, len(s.Entries))
	for i, e := range s.Entries {
		if i == skip || e.Analyte == nil {
			continue
		}
		used[*e.Analyte] = true
	}
	return used
}

// touch records an edit; results computed before it no longer apply.
func (s *Session) touch() {
	s.LastRun = nil
	s.UpdatedAt = time.Now().UTC()
}
