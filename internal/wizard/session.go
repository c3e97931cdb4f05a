package wizard

import (
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/findthatcharity/orgid-cli/internal/classify"
	"github.com/findthatcharity/orgid-cli/internal/enrich"
	"github.com/findthatcharity/orgid-cli/internal/fields"
	"github.com/findthatcharity/orgid-cli/internal/tabular"
)

var (
	// ErrStageBlocked means the requested stage needs an earlier step first.
	ErrStageBlocked = errors.New("wizard: stage blocked")
	// ErrUnknownStage means the stage name is not recognised.
	ErrUnknownStage = errors.New("wizard: unknown stage")
)

// Progress counts successful lookups during a download.
type Progress struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

// Percent is Done as a share of Total, 0 when nothing was requested.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) * 100 / float64(p.Total)
}

// Session is one user's pass through the wizard. It is safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.RWMutex
	stage     Stage
	filename  string
	table     *tabular.Table
	report    classify.Report
	column    string
	selection *fields.Selection
	progress  Progress
}

// NewSession starts a session at the file stage.
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		stage:     StageSelectFile,
		selection: fields.NewSelection(),
	}
}

// Load attaches a parsed file. If a column looks like an organisation id it is
// chosen and the session skips straight to field selection.
func (s *Session) Load(filename string, t *tabular.Table) classify.Report {
	report := classify.Inspect(t)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.filename = filename
	s.table = t
	s.report = report
	s.column = report.Guess
	s.progress = Progress{}
	if s.column != "" {
		s.stage = StageSelectFields
	} else {
		s.stage = StageSelectColumn
	}
	return report
}

// ChooseColumn sets the organisation id column and moves on to field selection.
func (s *Session) ChooseColumn(column string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return eris.Wrap(ErrStageBlocked, "no file loaded")
	}
	if err := enrich.Validate(s.table, column); err != nil {
		return err
	}
	s.column = column
	s.stage = StageSelectFields
	return nil
}

// SetStage moves to stage. Going back is always allowed; going forward needs
// a loaded file, and field selection also needs a column.
func (s *Session) SetStage(stage Stage) error {
	if !stage.Valid() {
		return eris.Wrapf(ErrUnknownStage, "%q", stage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stage.index() > s.stage.index() {
		if s.table == nil {
			return eris.Wrap(ErrStageBlocked, "no file loaded")
		}
		if stage == StageSelectFields && s.column == "" {
			return enrich.ErrNoColumn
		}
	}
	s.stage = stage
	return nil
}

// Stage returns the current stage.
func (s *Session) Stage() Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

// Column returns the chosen column, possibly empty.
func (s *Session) Column() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.column
}

// Fields returns the selected field ids.
func (s *Session) Fields() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.IDs()
}

// SetFields replaces the selection.
func (s *Session) SetFields(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = fields.NewSelection(ids...)
}

// ToggleField checks or unchecks one field.
func (s *Session) ToggleField(id string, checked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Toggle(id, checked)
}

// SelectAll applies the "select all codes" or "select all names" toggle.
func (s *Session) SelectAll(available []fields.Property, names, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if names {
		s.selection.SelectAllNames(available, on)
	} else {
		s.selection.SelectAllCodes(available, on)
	}
}

// Progress returns the latest lookup progress.
func (s *Session) Progress() Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// Request builds the enrichment request for the current state and resets
// progress. The returned request reports progress back into the session.
func (s *Session) Request() (enrich.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return enrich.Request{}, eris.Wrap(ErrStageBlocked, "no file loaded")
	}
	if err := enrich.Validate(s.table, s.column); err != nil {
		return enrich.Request{}, err
	}
	s.progress = Progress{}

	return enrich.Request{
		Table:    s.table,
		Filename: s.filename,
		Column:   s.column,
		Fields:   s.selection.IDs(),
		Progress: s.setProgress,
	}, nil
}

func (s *Session) setProgress(done, total int) {
	s.mu.Lock()
	s.progress = Progress{Done: done, Total: total}
	s.mu.Unlock()
}

// View is a JSON snapshot of a session.
type View struct {
	ID         string               `json:"id"`
	Stage      Stage                `json:"stage"`
	Visibility map[Stage]Visibility `json:"visibility"`
	Filename   string               `json:"filename,omitempty"`
	Rows       int                  `json:"rows"`
	Fields     []classify.Field     `json:"fields"`
	Column     string               `json:"column,omitempty"`
	Selected   []string             `json:"selected"`
	Progress   Progress             `json:"progress"`
	CreatedAt  time.Time            `json:"created_at"`
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return View{
		ID:         s.ID,
		Stage:      s.stage,
		Visibility: Set(s.stage),
		Filename:   s.filename,
		Rows:       s.report.Rows,
		Fields:     s.report.Fields,
		Column:     s.column,
		Selected:   append([]string{}, s.selection.IDs()...),
		Progress:   s.progress,
		CreatedAt:  s.CreatedAt,
	}
}
