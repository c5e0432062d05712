// internal/tui/app.go
//
// The tonewheel TUI. It follows The Elm Architecture via bubbletea: one
// model, messages in, view out. The model owns the orchestration core
// (store, registry, binder, reorder engine, coordinator, health tracker)
// and translates key and mouse events into the core's entry points. All
// state mutation funnels through StateStore.Set and Registry.Reorder.

package tui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kverel/tonewheel/internal/bind"
	"github.com/kverel/tonewheel/internal/catalog"
	"github.com/kverel/tonewheel/internal/dispatch"
	"github.com/kverel/tonewheel/internal/field"
	"github.com/kverel/tonewheel/internal/health"
	"github.com/kverel/tonewheel/internal/logging"
	"github.com/kverel/tonewheel/internal/module"
	"github.com/kverel/tonewheel/internal/render"
	"github.com/kverel/tonewheel/internal/reorder"
	"github.com/kverel/tonewheel/internal/state"
	"github.com/kverel/tonewheel/internal/timer"
	"github.com/kverel/tonewheel/plugins"
)

const (
	sidebarWidth = 32
	statusHeight = 1
)

// repaintMsg forces a render after a debounced commit lands.
type repaintMsg struct{}

// rowRef addresses one visible sidebar row: a module header (field == "")
// or one of its fields.
type rowRef struct {
	moduleID string
	field    string
}

// Option customizes App construction for tests and alternate runtimes.
type Option func(*App)

// WithScheduler overrides the timer scheduler driving debounce and frame
// coalescing.
func WithScheduler(s timer.Scheduler) Option {
	return func(a *App) {
		if s != nil {
			a.sched = s
		}
	}
}

// WithCatalog bypasses catalog loading.
func WithCatalog(c *catalog.Catalog) Option {
	return func(a *App) {
		a.catalog = c
	}
}

// WithPluginsDir overrides the plugin directory; empty disables plugins.
func WithPluginsDir(dir string) Option {
	return func(a *App) {
		a.pluginsDir = &dir
	}
}

// WithLogger attaches the session logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *App) {
		a.log = l
	}
}

// App is the main application model.
type App struct {
	projectDir string
	log        *logging.Logger
	sched      timer.Scheduler
	catalog    *catalog.Catalog
	pluginsDir *string

	store    *state.Store
	registry *module.Registry
	binder   *bind.Binder
	engine   *reorder.Engine
	coord    *render.Coordinator
	tracker  *health.Tracker
	events   *dispatch.Dispatcher

	width  int
	height int
	keys   keyMap
	styles styles

	cursor     int
	editing    bool
	editModule string
	editField  string
	editCtl    *editControl
	input      textinput.Model

	// Ephemeral drag state; the provisional order is purely visual until
	// the gesture ends.
	provisional []string
	dragMoved   bool
	pressedID   string

	bounds []reorder.Bounds

	showHelp bool
	help     viewport.Model
	helpText string

	noticeMu sync.Mutex
	notice   string
}

// NewApp builds the application model. Construction failures of the
// orchestration layer itself do not abort: the app comes up in the static
// fallback layout instead.
func NewApp(projectDir string, opts ...Option) *App {
	a := &App{
		projectDir: projectDir,
		sched:      timer.Real{},
		keys:       defaultKeyMap(),
		styles:     defaultStyles(),
		input:      newFieldInput(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	a.events = dispatch.New()
	a.store = state.New()
	a.tracker = health.NewTracker(a.events, a.log)
	a.engine = reorder.NewEngine()
	a.events.Subscribe(dispatch.ListenerFunc(a.onLifecycleEvent))

	if err := a.buildOrchestration(); err != nil {
		a.tracker.EnterFallback(err)
	}
	return a
}

// buildOrchestration assembles registry, binder, and coordinator from the
// catalog and plugins. An error here is a SystemInitError: the caller moves
// the whole app to fallback.
func (a *App) buildOrchestration() error {
	cat := a.catalog
	if cat == nil {
		cat = catalog.Load(a.projectDir, a.log)
		a.catalog = cat
	}

	a.registry = module.NewRegistry(a.store, a.log)
	a.binder = bind.New(a.store, a.registry, a.sched, bind.WithLogger(a.log))
	a.coord = render.New(a.store, a.registry, a.tracker, a.events, a.sched, render.WithLogger(a.log))

	var descriptors []module.Descriptor
	for _, m := range cat.Modules {
		d, err := m.Descriptor()
		if err != nil {
			// One bad catalog entry disables that module only.
			a.log.Printf("tui: skipping module %s: %v", m.ID, err)
			continue
		}
		descriptors = append(descriptors, d)
	}
	if dir := a.effectivePluginsDir(); dir != "" {
		loaded, err := plugins.LoadDir(dir, a.log)
		if err != nil {
			a.log.Printf("tui: plugins unavailable: %v", err)
		}
		for _, l := range loaded {
			d, err := l.Descriptor()
			if err != nil {
				a.log.Printf("tui: skipping plugin %s: %v", l.Path, err)
				continue
			}
			descriptors = append(descriptors, d)
		}
	}
	if len(descriptors) == 0 {
		return fmt.Errorf("tui: no usable modules in catalog")
	}

	for _, d := range descriptors {
		if err := a.registry.Register(d); err != nil {
			a.log.Printf("tui: register %s: %v", d.ID, err)
		}
	}

	// Cross-module interaction: enabling a module's active flag expands
	// its panel.
	for _, d := range a.registry.Ordered() {
		if _, ok := d.Field("active"); !ok {
			continue
		}
		id := d.ID
		a.binder.OnCommit(id, "active", func(st *state.Store, v any) {
			if v == true {
				st.Set(module.Path(id, "expanded"), true)
			}
		})
	}
	return nil
}

func (a *App) effectivePluginsDir() string {
	if a.pluginsDir != nil {
		return *a.pluginsDir
	}
	return catalog.PluginsDir(a.projectDir)
}

func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.help.Height = msg.Height - 1
		if a.coord != nil {
			a.coord.SetDimensions(a.canvasDims())
		}
		return a, nil

	case repaintMsg:
		a.applyEditEcho()
		return a, nil

	case tea.MouseMsg:
		return a.handleMouse(msg)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	if a.editing {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.showHelp {
		switch {
		case key.Matches(msg, a.keys.Cancel), key.Matches(msg, a.keys.Help), key.Matches(msg, a.keys.Quit):
			a.showHelp = false
			return a, nil
		}
		var cmd tea.Cmd
		a.help, cmd = a.help.Update(msg)
		return a, cmd
	}

	if a.editing {
		return a.handleEditKey(msg)
	}

	if _, dragging := a.engine.Dragging(); dragging && key.Matches(msg, a.keys.Cancel) {
		a.engine.Cancel()
		a.provisional = nil
		a.dragMoved = false
		a.pressedID = ""
		return a, nil
	}

	if a.tracker.InFallback() {
		if key.Matches(msg, a.keys.Quit) {
			return a, tea.Quit
		}
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Help):
		a.openHelp()
		return a, nil

	case key.Matches(msg, a.keys.MoveUp):
		return a, a.moveCurrentModule(reorder.MoveUp)

	case key.Matches(msg, a.keys.MoveDown):
		return a, a.moveCurrentModule(reorder.MoveDown)

	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case key.Matches(msg, a.keys.Down):
		if a.cursor < len(a.rows())-1 {
			a.cursor++
		}
		return a, nil

	case key.Matches(msg, a.keys.Cycle):
		return a, a.cycleCurrentField()

	case key.Matches(msg, a.keys.Toggle):
		return a.activateCurrentRow()
	}
	return a, nil
}

// activateCurrentRow toggles a module header or begins editing a field.
func (a *App) activateCurrentRow() (tea.Model, tea.Cmd) {
	rows := a.rows()
	if a.cursor >= len(rows) {
		return a, nil
	}
	row := rows[a.cursor]
	if row.field == "" {
		a.toggleExpanded(row.moduleID)
		return a, nil
	}
	desc, ok := a.registry.ByID(row.moduleID)
	if !ok {
		return a, nil
	}
	spec, ok := desc.Field(row.field)
	if !ok {
		return a, nil
	}
	if spec.Kind == field.KindBool || spec.Kind == field.KindChoice {
		return a, a.cycleCurrentField()
	}
	return a, a.startEdit(row.moduleID, row.field)
}

func (a *App) toggleExpanded(id string) {
	path := module.Path(id, "expanded")
	v, _ := a.store.Get(path)
	a.store.Set(path, v != true)
}

func (a *App) startEdit(moduleID, fieldName string) tea.Cmd {
	a.input = newFieldInput()
	a.editCtl = &editControl{}
	if err := a.binder.Bind(moduleID, fieldName, a.editCtl); err != nil {
		a.setNotice(err.Error())
		a.editCtl = nil
		return nil
	}
	a.editing = true
	a.editModule = moduleID
	a.editField = fieldName
	a.applyEditEcho()
	a.input.Focus()
	a.input.CursorEnd()
	return textinput.Blink
}

// applyEditEcho moves a buffered binder echo into the textinput. Echoes are
// buffered because a debounced commit lands on a timer goroutine; only the
// event loop may touch the textinput, so this runs from Update and View.
func (a *App) applyEditEcho() {
	if a.editCtl == nil {
		return
	}
	if text, ok := a.editCtl.takeDisplay(); ok {
		a.input.SetValue(text)
		a.input.CursorEnd()
	}
}

func (a *App) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Cancel):
		a.endEdit(false)
		return a, nil
	case key.Matches(msg, a.keys.Toggle):
		a.endEdit(true)
		return a, nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.editCtl.setRaw(a.input.Value())
	a.binder.HandleChange(a.editModule, a.editField)
	a.applyEditEcho()
	// Repaint once the debounce window has had a chance to commit.
	repaint := tea.Tick(bind.DefaultDebounce+25*time.Millisecond, func(time.Time) tea.Msg {
		return repaintMsg{}
	})
	return a, tea.Batch(cmd, repaint)
}

// endEdit closes the edit session. Confirming flushes a still-pending valid
// commit so the typed value is not lost to the debounce window; cancelling
// discards it. Invalid input reverts either way.
func (a *App) endEdit(confirm bool) {
	if confirm {
		a.binder.Flush(a.editModule, a.editField)
	}
	a.binder.HandleBlur(a.editModule, a.editField)
	a.binder.Unbind(a.editModule, a.editField)
	a.editing = false
	a.editModule = ""
	a.editField = ""
	a.editCtl = nil
	a.input.Blur()
}

// cycleCurrentField advances a bool or choice field and commits through the
// binder's discrete path.
func (a *App) cycleCurrentField() tea.Cmd {
	rows := a.rows()
	if a.cursor >= len(rows) || rows[a.cursor].field == "" {
		return nil
	}
	row := rows[a.cursor]
	desc, ok := a.registry.ByID(row.moduleID)
	if !ok {
		return nil
	}
	spec, ok := desc.Field(row.field)
	if !ok {
		return nil
	}
	current, _ := a.store.Get(module.Path(row.moduleID, row.field))

	var next any
	switch spec.Kind {
	case field.KindBool:
		next = current != true
	case field.KindChoice:
		if len(spec.Choices) == 0 {
			return nil
		}
		idx := 0
		for i, c := range spec.Choices {
			if c == current {
				idx = (i + 1) % len(spec.Choices)
				break
			}
		}
		next = spec.Choices[idx]
	default:
		return nil
	}

	ctl := &toggleControl{raw: next}
	if err := a.binder.Bind(row.moduleID, row.field, ctl); err != nil {
		a.setNotice(err.Error())
		return nil
	}
	a.binder.HandleChange(row.moduleID, row.field)
	a.binder.Unbind(row.moduleID, row.field)
	if ctl.errMsg != "" {
		a.setNotice(ctl.errMsg)
	}
	return nil
}

// moveCurrentModule is the discrete reorder fallback: swap with a neighbor
// and commit immediately.
func (a *App) moveCurrentModule(move func([]string, string) ([]string, bool)) tea.Cmd {
	rows := a.rows()
	if a.cursor >= len(rows) {
		return nil
	}
	id := rows[a.cursor].moduleID
	next, moved := move(a.registry.Order(), id)
	if !moved {
		return nil
	}
	if _, err := a.registry.Reorder(next); err != nil {
		a.setNotice(fmt.Sprintf("reorder failed: %v", err))
		return nil
	}
	a.cursorToModule(id)
	return nil
}

func (a *App) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if a.tracker.InFallback() || a.showHelp || a.editing {
		return a, nil
	}
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || msg.X >= sidebarWidth {
			return a, nil
		}
		if id, ok := a.moduleAt(msg.Y); ok {
			if err := a.engine.Start(id, a.displayOrder()); err == nil {
				a.pressedID = id
				a.dragMoved = false
			}
		}
		return a, nil

	case tea.MouseActionMotion:
		if _, dragging := a.engine.Dragging(); !dragging {
			return a, nil
		}
		if provisional, changed := a.engine.Move(msg.Y, a.bounds); changed {
			a.provisional = provisional
			a.dragMoved = true
		}
		return a, nil

	case tea.MouseActionRelease:
		if _, dragging := a.engine.Dragging(); !dragging {
			return a, nil
		}
		final := a.engine.End()
		moved := a.dragMoved
		pressed := a.pressedID
		a.provisional = nil
		a.dragMoved = false
		a.pressedID = ""
		if moved {
			if _, err := a.registry.Reorder(final); err != nil {
				a.setNotice(fmt.Sprintf("reorder failed: %v", err))
			}
		} else if pressed != "" {
			// A press without movement is a click: the gesture
			// suppressed the toggle until now.
			a.toggleExpanded(pressed)
		}
		return a, nil
	}
	return a, nil
}

// rows lists the visible sidebar rows in display order.
func (a *App) rows() []rowRef {
	var rows []rowRef
	for _, id := range a.displayOrder() {
		rows = append(rows, rowRef{moduleID: id})
		if !a.isExpanded(id) {
			continue
		}
		desc, ok := a.registry.ByID(id)
		if !ok {
			continue
		}
		for _, f := range desc.Fields {
			rows = append(rows, rowRef{moduleID: id, field: f.Name})
		}
	}
	return rows
}

// displayOrder is the provisional order during a drag, the committed order
// otherwise.
func (a *App) displayOrder() []string {
	if a.provisional != nil {
		return a.provisional
	}
	return a.registry.Order()
}

func (a *App) isExpanded(id string) bool {
	v, _ := a.store.Get(module.Path(id, "expanded"))
	return v == true
}

func (a *App) moduleAt(y int) (string, bool) {
	for _, b := range a.bounds {
		if y >= b.Top && y <= b.Bottom {
			return b.ID, true
		}
	}
	return "", false
}

func (a *App) cursorToModule(id string) {
	for i, row := range a.rows() {
		if row.moduleID == id && row.field == "" {
			a.cursor = i
			return
		}
	}
}

func (a *App) canvasDims() module.Dimensions {
	w := a.width - sidebarWidth - 4
	h := a.height - statusHeight
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return module.Dimensions{Width: w, Height: h}
}

func (a *App) onLifecycleEvent(e dispatch.Event) {
	switch e.Type {
	case dispatch.EventModuleDegraded:
		if id, ok := e.Payload.(string); ok {
			a.setNotice(fmt.Sprintf("module %s degraded (see log)", id))
		}
	case dispatch.EventModuleRecovered:
		if id, ok := e.Payload.(string); ok {
			a.setNotice(fmt.Sprintf("module %s recovered", id))
		}
	case dispatch.EventSystemFallback:
		a.setNotice("orchestration unavailable; static layout")
	}
}

func (a *App) setNotice(text string) {
	a.noticeMu.Lock()
	a.notice = text
	a.noticeMu.Unlock()
}

func (a *App) currentNotice() string {
	a.noticeMu.Lock()
	defer a.noticeMu.Unlock()
	return a.notice
}

// newFieldInput returns a fresh textinput for field editing; callers focus
// and populate it.
func newFieldInput() textinput.Model {
	return textinput.New()
}
