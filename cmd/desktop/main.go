package main

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/MihkelHunter/dayplanner/internal/auth"
	"github.com/MihkelHunter/dayplanner/internal/backend"
	"github.com/MihkelHunter/dayplanner/internal/config"
	"github.com/MihkelHunter/dayplanner/internal/logging"
	"github.com/MihkelHunter/dayplanner/internal/notice"
	"github.com/MihkelHunter/dayplanner/internal/tasks"
	"github.com/MihkelHunter/dayplanner/internal/todo"
)

// ── Colour palette ───────────────────────────────────────────────────────────

var (
	colBackground = color.NRGBA{R: 15, G: 15, B: 20, A: 255}
	colSurface    = color.NRGBA{R: 26, G: 26, B: 36, A: 255}
	colAccent     = color.NRGBA{R: 99, G: 102, B: 241, A: 255}
	colHighPri    = color.NRGBA{R: 239, G: 68, B: 68, A: 255}
	colMedPri     = color.NRGBA{R: 245, G: 158, B: 11, A: 255}
	colLowPri     = color.NRGBA{R: 100, G: 116, B: 139, A: 255}
	colDoneRow    = color.NRGBA{R: 20, G: 30, B: 25, A: 255}
)

var noticeColours = map[notice.Kind]color.Color{
	notice.Info:    color.NRGBA{R: 59, G: 130, B: 246, A: 255},
	notice.Success: color.NRGBA{R: 16, G: 185, B: 129, A: 255},
	notice.Warning: color.NRGBA{R: 245, G: 158, B: 11, A: 255},
	notice.Error:   color.NRGBA{R: 239, G: 68, B: 68, A: 255},
}

// ── App state ────────────────────────────────────────────────────────────────

type appState struct {
	store  *tasks.Store
	gate   *auth.Gate
	board  *notice.Board
	log    *slog.Logger
	win    fyne.Window
	filter todo.Filter

	// Fields below are only touched on the fyne goroutine.
	taskList   *widget.List
	statsLabel *widget.Label
	loading    *widget.ProgressBarInfinite
	noticeBG   *canvas.Rectangle
	noticeText *widget.Label
	noticeBox  *fyne.Container
	userLabel  *widget.Label
	tasks      []todo.Task
	filterBtns map[todo.Filter]*widget.Button
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	be, err := backend.Open(context.Background(), cfg, log)
	if err != nil {
		log.Error("open backend", "err", err)
		os.Exit(1)
	}
	defer be.Close()

	st := tasks.New(be.Repo, tasks.WithLogger(log))
	defer st.Dispose()

	a := app.New()
	a.Settings().SetTheme(&darkTheme{})

	win := a.NewWindow("Day Planner")
	win.Resize(fyne.NewSize(760, 620))
	win.CenterOnScreen()

	s := &appState{
		store:  st,
		gate:   be.Gate,
		board:  notice.NewBoard(time.Now),
		log:    log,
		win:    win,
		filter: todo.FilterAll,
	}
	win.SetContent(s.buildUI())
	st.Subscribe(func(snap tasks.State) { fyne.Do(func() { s.render(snap) }) })

	win.Show()
	go s.start()
	a.Run()
}

// start signs in when the backend needs it, then performs the first load.
func (s *appState) start() {
	ctx := context.Background()
	if s.gate != nil {
		s.gate.OnChange(func(st auth.State) { fyne.Do(func() { s.renderAuth(st) }) })
		if _, ok := s.gate.Start(ctx).(auth.Authenticated); !ok {
			fyne.Do(s.showLogin)
			return
		}
	}
	if err := s.store.Init(ctx); err != nil {
		s.notify(notice.Error, "Failed to load tasks: "+err.Error())
	}
}

// ── Build UI ─────────────────────────────────────────────────────────────────

func (s *appState) buildUI() fyne.CanvasObject {
	// Header
	title := canvas.NewText("  ✓  Day Planner", color.White)
	title.TextSize = 20
	title.TextStyle = fyne.TextStyle{Bold: true}

	addBtn := widget.NewButton("+ Add Task", func() { s.showTaskForm(nil) })
	addBtn.Importance = widget.HighImportance

	s.userLabel = widget.NewLabel("")
	right := container.NewHBox(s.userLabel)
	if s.gate != nil {
		right.Add(widget.NewButtonWithIcon("", theme.LogoutIcon(), s.logout))
	}
	right.Add(container.NewPadded(addBtn))

	header := container.NewBorder(nil, nil, title, right)
	headerBG := canvas.NewRectangle(colSurface)
	headerStack := container.NewStack(headerBG, container.NewPadded(header))

	// Notification banner
	s.noticeBG = canvas.NewRectangle(noticeColours[notice.Info])
	s.noticeBG.CornerRadius = 8
	s.noticeText = widget.NewLabel("")
	closeBtn := widget.NewButtonWithIcon("", theme.CancelIcon(), s.dismissNotice)
	closeBtn.Importance = widget.LowImportance
	s.noticeBox = container.NewStack(s.noticeBG, container.NewBorder(nil, nil, nil, closeBtn, s.noticeText))
	s.noticeBox.Hide()

	// Filter tabs
	s.filterBtns = make(map[todo.Filter]*widget.Button, len(todo.Filters))
	filterRow := container.NewHBox(layout.NewSpacer())
	for _, f := range todo.Filters {
		btn := widget.NewButton(filterLabel(f), func() { s.setFilter(f) })
		s.filterBtns[f] = btn
		filterRow.Add(btn)
	}
	filterRow.Add(layout.NewSpacer())
	s.highlightFilter()

	s.loading = widget.NewProgressBarInfinite()
	s.loading.Hide()

	// Task list
	s.taskList = widget.NewList(
		func() int { return len(s.tasks) },
		s.makeTaskRow,
		s.updateTaskRow,
	)
	s.taskList.OnSelected = func(id widget.ListItemID) { s.taskList.Unselect(id) }

	// Footer / stats
	s.statsLabel = widget.NewLabel("")
	clearDoneBtn := widget.NewButton("Clear completed", s.confirmClearCompleted)
	clearAllBtn := widget.NewButton("Clear all", s.confirmClearAll)
	clearAllBtn.Importance = widget.DangerImportance
	footer := container.NewBorder(nil, nil, nil, container.NewHBox(clearDoneBtn, clearAllBtn), s.statsLabel)
	footerBG := canvas.NewRectangle(colSurface)
	footerStack := container.NewStack(footerBG, container.NewPadded(footer))

	// Root layout
	bg := canvas.NewRectangle(colBackground)
	ui := container.NewBorder(
		container.NewVBox(headerStack, s.noticeBox, filterRow, s.loading),
		footerStack,
		nil, nil,
		container.NewScroll(s.taskList),
	)
	return container.NewStack(bg, ui)
}

func filterLabel(f todo.Filter) string {
	switch f {
	case todo.FilterPending:
		return "Pending"
	case todo.FilterCompleted:
		return "Completed"
	case todo.FilterHigh:
		return "High priority"
	}
	return "All"
}

// ── Task row template ─────────────────────────────────────────────────────────

func (s *appState) makeTaskRow() fyne.CanvasObject {
	priDot := canvas.NewCircle(colLowPri)
	priDot.Resize(fyne.NewSize(12, 12))

	checkBtn := widget.NewButtonWithIcon("", theme.RadioButtonIcon(), func() {})
	checkBtn.Importance = widget.LowImportance

	titleLabel := widget.NewLabel("title")
	titleLabel.TextStyle = fyne.TextStyle{Bold: true}

	descLabel := widget.NewLabel("desc")

	editBtn := widget.NewButtonWithIcon("", theme.DocumentCreateIcon(), func() {})
	editBtn.Importance = widget.LowImportance

	deleteBtn := widget.NewButtonWithIcon("", theme.DeleteIcon(), func() {})
	deleteBtn.Importance = widget.DangerImportance

	left := container.NewHBox(
		container.NewCenter(priDot),
		checkBtn,
		container.NewVBox(titleLabel, descLabel),
	)
	right := container.NewHBox(editBtn, deleteBtn)
	rowContent := container.NewBorder(nil, nil, left, right)

	rowBG := canvas.NewRectangle(colSurface)
	rowBG.CornerRadius = 8

	return container.NewStack(rowBG, container.NewPadded(rowContent))
}

func (s *appState) updateTaskRow(i widget.ListItemID, obj fyne.CanvasObject) {
	if i >= len(s.tasks) {
		return
	}
	t := s.tasks[i]

	stack := obj.(*fyne.Container)
	rowBG := stack.Objects[0].(*canvas.Rectangle)
	padded := stack.Objects[1].(*fyne.Container)
	border := padded.Objects[0].(*fyne.Container)

	// NewBorder keeps only the non-nil edges, in order: left, right.
	left := border.Objects[0].(*fyne.Container)
	right := border.Objects[1].(*fyne.Container)

	priDotBox := left.Objects[0].(*fyne.Container)
	priDot := priDotBox.Objects[0].(*canvas.Circle)
	checkBtn := left.Objects[1].(*widget.Button)
	textBox := left.Objects[2].(*fyne.Container)
	titleLabel := textBox.Objects[0].(*widget.Label)
	descLabel := textBox.Objects[1].(*widget.Label)

	editBtn := right.Objects[0].(*widget.Button)
	deleteBtn := right.Objects[1].(*widget.Button)

	switch t.Priority {
	case todo.PriorityHigh:
		priDot.FillColor = colHighPri
	case todo.PriorityMedium:
		priDot.FillColor = colMedPri
	default:
		priDot.FillColor = colLowPri
	}
	priDot.Refresh()

	if t.Completed {
		checkBtn.SetIcon(theme.ConfirmIcon())
		titleLabel.TextStyle = fyne.TextStyle{Italic: true}
		rowBG.FillColor = colDoneRow
	} else {
		checkBtn.SetIcon(theme.RadioButtonIcon())
		titleLabel.TextStyle = fyne.TextStyle{Bold: true}
		rowBG.FillColor = colSurface
	}
	rowBG.Refresh()

	titleLabel.SetText(t.Text)
	descLabel.SetText(rowDetail(t))

	task := t
	checkBtn.OnTapped = func() { s.toggleTask(task) }
	editBtn.OnTapped = func() { s.showTaskForm(&task) }
	deleteBtn.OnTapped = func() { s.confirmDelete(task) }
}

func rowDetail(t todo.Task) string {
	parts := []string{t.Priority.Label() + " priority"}
	if t.Time != nil {
		parts = append(parts, "at "+t.Time.String())
	}
	if t.Overdue(time.Now()) {
		parts = append(parts, "overdue")
	}
	if t.Description != "" {
		parts = append(parts, t.Description)
	} else {
		parts = append(parts, t.CreatedAt.Local().Format("Jan 2"))
	}
	return strings.Join(parts, " · ")
}

// ── Rendering ─────────────────────────────────────────────────────────────────

func (s *appState) render(st tasks.State) {
	s.tasks = s.filter.Apply(st.Tasks)
	s.taskList.Refresh()

	stats := todo.ComputeStats(st.Tasks)
	s.statsLabel.SetText(fmt.Sprintf("%d / %d completed · %d pending · %d%%",
		stats.Completed, stats.Total, stats.Pending, stats.Percent()))

	if st.Loading {
		s.loading.Show()
		s.loading.Start()
	} else {
		s.loading.Stop()
		s.loading.Hide()
	}
}

func (s *appState) renderAuth(st auth.State) {
	switch st := st.(type) {
	case auth.Authenticated:
		s.userLabel.SetText(st.User.Email)
	case auth.Failed:
		s.userLabel.SetText("")
		s.showNotice(notice.Error, "Sign-in failed: "+st.Reason)
	default:
		s.userLabel.SetText("")
	}
}

func (s *appState) setFilter(f todo.Filter) {
	s.filter = f
	s.highlightFilter()
	s.render(s.store.Snapshot())
}

func (s *appState) highlightFilter() {
	for f, btn := range s.filterBtns {
		if f == s.filter {
			btn.Importance = widget.HighImportance
		} else {
			btn.Importance = widget.MediumImportance
		}
		btn.Refresh()
	}
}

// notify may be called from any goroutine.
func (s *appState) notify(k notice.Kind, msg string) {
	fyne.Do(func() { s.showNotice(k, msg) })
}

func (s *appState) showNotice(k notice.Kind, msg string) {
	s.board.Show(k, msg)
	s.noticeBG.FillColor = noticeColours[k]
	s.noticeBG.Refresh()
	s.noticeText.SetText(msg)
	s.noticeBox.Show()
	if ttl := k.AutoHide(); ttl > 0 {
		time.AfterFunc(ttl, func() {
			fyne.Do(func() {
				// A later notice may have replaced this one.
				if _, ok := s.board.Current(); !ok {
					s.noticeBox.Hide()
				}
			})
		})
	}
}

func (s *appState) dismissNotice() {
	s.board.Dismiss()
	s.store.ClearError()
	s.noticeBox.Hide()
}

// ── Actions ───────────────────────────────────────────────────────────────────
//
// Adapter calls run off the UI goroutine; the store's subscription repaints.

func (s *appState) toggleTask(t todo.Task) {
	go func() {
		updated, err := s.store.ToggleTask(context.Background(), t.ID)
		if err != nil {
			s.notify(notice.Error, "Failed to update task: "+err.Error())
			return
		}
		if updated.Completed {
			s.notify(notice.Success, "Task completed!")
		} else {
			s.notify(notice.Info, "Task marked as pending")
		}
	}()
}

func (s *appState) confirmDelete(t todo.Task) {
	dialog.ShowConfirm("Delete Task",
		fmt.Sprintf("Delete \"%s\"?", t.Text),
		func(ok bool) {
			if !ok {
				return
			}
			go func() {
				if err := s.store.DeleteTask(context.Background(), t.ID); err != nil {
					s.notify(notice.Error, "Failed to delete task: "+err.Error())
					return
				}
				s.notify(notice.Info, "Task deleted")
			}()
		}, s.win)
}

func (s *appState) confirmClearCompleted() {
	done, _ := s.store.View(todo.FilterCompleted)
	if len(done) == 0 {
		s.showNotice(notice.Info, "No completed tasks to clear")
		return
	}
	dialog.ShowConfirm("Clear completed",
		fmt.Sprintf("Delete %d completed task(s)?", len(done)),
		func(ok bool) {
			if ok {
				s.clear(s.store.ClearCompleted, "completed task(s)")
			}
		}, s.win)
}

func (s *appState) confirmClearAll() {
	all, _ := s.store.View(todo.FilterAll)
	if len(all) == 0 {
		s.showNotice(notice.Info, "No tasks to clear")
		return
	}
	dialog.ShowConfirm("Clear all",
		fmt.Sprintf("Delete all %d task(s)? This cannot be undone.", len(all)),
		func(ok bool) {
			if ok {
				s.clear(s.store.ClearAll, "task(s)")
			}
		}, s.win)
}

func (s *appState) clear(run func(context.Context) (int, error), what string) {
	go func() {
		n, err := run(context.Background())
		if err != nil {
			s.notify(notice.Error, fmt.Sprintf("Failed to clear tasks (%d deleted): %v", n, err))
			return
		}
		s.notify(notice.Success, fmt.Sprintf("%d %s deleted", n, what))
	}()
}

func (s *appState) showTaskForm(existing *todo.Task) {
	titleEntry := widget.NewEntry()
	titleEntry.SetPlaceHolder("What needs doing?")

	descEntry := widget.NewMultiLineEntry()
	descEntry.SetPlaceHolder("Optional description…")
	descEntry.SetMinRowsVisible(3)

	labels := make([]string, 0, len(todo.Priorities))
	for _, p := range todo.Priorities {
		labels = append(labels, p.Label())
	}
	prioritySelect := widget.NewSelect(labels, nil)
	prioritySelect.SetSelected(todo.PriorityMedium.Label())

	timeEntry := widget.NewEntry()
	timeEntry.SetPlaceHolder("HH:MM")

	if existing != nil {
		titleEntry.SetText(existing.Text)
		descEntry.SetText(existing.Description)
		prioritySelect.SetSelected(existing.Priority.Label())
		if existing.Time != nil {
			timeEntry.SetText(existing.Time.String())
		}
	}

	form := widget.NewForm(
		widget.NewFormItem("Task *", titleEntry),
		widget.NewFormItem("Description", descEntry),
		widget.NewFormItem("Priority", prioritySelect),
		widget.NewFormItem("Time", timeEntry),
	)

	label := "Add Task"
	if existing != nil {
		label = "Edit Task"
	}

	dialog.ShowCustomConfirm(label, "Save", "Cancel", form, func(ok bool) {
		if !ok {
			return
		}
		text := strings.TrimSpace(titleEntry.Text)
		if text == "" {
			s.showNotice(notice.Warning, "Task text cannot be empty")
			return
		}
		pri, err := todo.ParsePriority(prioritySelect.Selected)
		if err != nil {
			pri = todo.PriorityMedium
		}
		var at *todo.TimeOfDay
		if raw := strings.TrimSpace(timeEntry.Text); raw != "" {
			tod, err := todo.ParseTimeOfDay(raw)
			if err != nil {
				s.showNotice(notice.Warning, "Time must be HH:MM")
				return
			}
			at = &tod
		}
		desc := strings.TrimSpace(descEntry.Text)

		if existing == nil {
			s.addTask(todo.CreateRequest{Text: text, Description: desc, Priority: pri, Time: at})
			return
		}
		s.editTask(existing.ID, todo.UpdateRequest{
			Text:        &text,
			Description: &desc,
			Priority:    &pri,
			Time:        at,
			ClearTime:   at == nil,
		})
	}, s.win)
}

func (s *appState) addTask(req todo.CreateRequest) {
	go func() {
		if _, err := s.store.AddTask(context.Background(), req); err != nil {
			s.notify(notice.Error, "Failed to add task: "+err.Error())
			return
		}
		s.notify(notice.Success, "Task added successfully!")
	}()
}

func (s *appState) editTask(id string, req todo.UpdateRequest) {
	go func() {
		if _, err := s.store.UpdateTask(context.Background(), id, req); err != nil {
			s.notify(notice.Error, "Failed to update task: "+err.Error())
			return
		}
		s.notify(notice.Success, "Task updated successfully!")
	}()
}

// ── Session ──────────────────────────────────────────────────────────────────

func (s *appState) showLogin() {
	tokenEntry := widget.NewPasswordEntry()
	tokenEntry.SetPlaceHolder("Identity token")
	form := widget.NewForm(widget.NewFormItem("Token", tokenEntry))

	dialog.ShowCustomConfirm("Sign in", "Sign in", "Quit", form, func(ok bool) {
		if !ok {
			s.win.Close()
			return
		}
		idToken := strings.TrimSpace(tokenEntry.Text)
		go func() {
			ctx := context.Background()
			if err := s.gate.Login(ctx, idToken); err != nil {
				s.log.Warn("sign-in failed", "err", err)
				fyne.Do(s.showLogin)
				return
			}
			if err := s.store.Init(ctx); err != nil {
				s.notify(notice.Error, "Failed to load tasks: "+err.Error())
			}
		}()
	}, s.win)
}

func (s *appState) logout() {
	go func() {
		s.gate.Logout(context.Background())
		fyne.Do(func() {
			s.render(tasks.State{})
			s.showLogin()
		})
	}()
}

// ── Custom dark theme ─────────────────────────────────────────────────────────

type darkTheme struct{}

func (darkTheme) Color(n fyne.ThemeColorName, v fyne.ThemeVariant) color.Color {
	switch n {
	case theme.ColorNameBackground:
		return colBackground
	case theme.ColorNameButton:
		return colAccent
	case theme.ColorNamePrimary:
		return colAccent
	case theme.ColorNameForeground:
		return color.White
	case theme.ColorNameInputBackground:
		return color.NRGBA{R: 35, G: 35, B: 50, A: 255}
	case theme.ColorNameDisabled:
		return color.NRGBA{R: 80, G: 80, B: 100, A: 255}
	case theme.ColorNameSeparator:
		return color.NRGBA{R: 50, G: 50, B: 65, A: 255}
	}
	return theme.DefaultTheme().Color(n, v)
}

func (darkTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (darkTheme) Icon(n fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(n)
}

func (darkTheme) Size(n fyne.ThemeSizeName) float32 {
	switch n {
	case theme.SizeNamePadding:
		return 10
	case theme.SizeNameText:
		return 14
	case theme.SizeNameInlineIcon:
		return 20
	}
	return theme.DefaultTheme().Size(n)
}
