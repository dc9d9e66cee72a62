package router

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Screen is one page of the dashboard.
type Screen interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Screen, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// Router держит стек экранов. Нижний экран (дашборд) не снимается.
// Маршруты (ui.RouterMsg) разбирает корневая модель, роутер только держит стек.
type Router struct {
	stack  []Screen
	width  int
	height int
}

func New(root Screen) *Router {
	return &Router{stack: []Screen{root}}
}

func (r *Router) top() Screen {
	return r.stack[len(r.stack)-1]
}

// activate подгоняет размер верхнего экрана и инициализирует его.
func (r *Router) activate() tea.Cmd {
	s := r.top()
	s.SetSize(r.width, r.height)
	return s.Init()
}

func (r *Router) Init() tea.Cmd {
	return r.top().Init()
}

// Update обрабатывает размер окна и esc, остальное уходит верхнему экрану.
func (r *Router) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.SetSize(msg.Width, msg.Height)
		return r, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc && len(r.stack) > 1 {
			return r, r.Pop()
		}
	}

	next, cmd := r.top().Update(msg)
	r.stack[len(r.stack)-1] = next
	return r, cmd
}

func (r *Router) View() string {
	return r.top().View()
}

func (r *Router) SetSize(width, height int) {
	r.width, r.height = width, height
	r.top().SetSize(width, height)
}

// Push кладёт экран поверх текущего.
func (r *Router) Push(s Screen) tea.Cmd {
	r.stack = append(r.stack, s)
	return r.activate()
}

// Pop возвращает к предыдущему экрану. На корне ничего не делает.
func (r *Router) Pop() tea.Cmd {
	if len(r.stack) <= 1 {
		return nil
	}
	r.stack = r.stack[:len(r.stack)-1]
	return r.activate()
}

// Replace меняет верхний экран, глубина стека не растёт.
func (r *Router) Replace(s Screen) tea.Cmd {
	if len(r.stack) == 1 {
		return r.Push(s)
	}
	r.stack[len(r.stack)-1] = s
	return r.activate()
}

// Clear возвращает на корневой экран.
func (r *Router) Clear() tea.Cmd {
	if len(r.stack) <= 1 {
		return nil
	}
	r.stack = r.stack[:1]
	return r.activate()
}

func (r *Router) Current() Screen { return r.top() }

func (r *Router) Depth() int { return len(r.stack) }
