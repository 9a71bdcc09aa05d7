package ui

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/skalibog/genetrader/internal/config"
	"github.com/skalibog/genetrader/pkg/logger"
	"github.com/skalibog/genetrader/pkg/models"
	"go.uber.org/zap"
)

// maxLogLines сколько последних строк лога держать в памяти
const maxLogLines = 50

// Стили UI
var (
	// Основные цвета
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")
	// Главный контейнер
	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1).
			Align(lipgloss.Center)
	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#ffffff")).
				Background(secondaryColor).
				Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")).
			Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("#222222"))
)

// Регулярное выражение для удаления ANSI-цветов
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// TermUI терминальный интерфейс хода оптимизации
type TermUI struct {
	title         string
	generations   []models.GenerationStats
	total         int
	result        *models.RunResult
	statsMutex    sync.RWMutex
	logs          []string
	logsMutex     sync.RWMutex
	config        config.UIConfig
	program       *tea.Program
	programMutex  sync.Mutex
	selectedIndex int
	width         int
	height        int
	logFile       string // Путь к JSON логу
}

// Сообщения для обновления UI
type refreshMsg struct{}

// bubbleModel - модель для bubbletea
type bubbleModel struct {
	ui *TermUI
}

func NewTermUI(ctx context.Context, cfg config.UIConfig, title, logFile string, totalGenerations int) *TermUI {
	ui := &TermUI{
		title:   title,
		total:   totalGenerations,
		logs:    []string{"Оптимизация запущена. Ожидание первого поколения..."},
		config:  cfg,
		width:   120,
		height:  40,
		logFile: logFile,
	}

	// Загружаем логи из файла при запуске
	if err := ui.loadLogsFromFile(); err != nil {
		ui.logs = append(ui.logs, fmt.Sprintf("Ошибка загрузки логов: %v", err))
	}

	// Запускаем таймер для обновления логов
	refresh := time.Duration(cfg.RefreshRate) * time.Millisecond
	if refresh <= 0 {
		refresh = time.Second
	}
	go func() {
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := ui.loadLogsFromFile(); err != nil {
					logger.Warn("Ошибка загрузки логов", zap.Error(err))
				}
				ui.refresh()
			}
		}
	}()

	return ui
}

// Start блокирует до выхода из интерфейса
func (ui *TermUI) Start() error {
	program := tea.NewProgram(bubbleModel{ui: ui}, tea.WithAltScreen())
	ui.programMutex.Lock()
	ui.program = program
	ui.programMutex.Unlock()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("ошибка запуска UI: %w", err)
	}
	return nil
}

// Quit закрывает интерфейс
func (ui *TermUI) Quit() {
	if p := ui.currentProgram(); p != nil {
		p.Quit()
	}
}

// ObserveGeneration наблюдатель для brkga.Optimizer
func (ui *TermUI) ObserveGeneration(_ context.Context, stats *models.GenerationStats) {
	ui.statsMutex.Lock()
	ui.generations = append(ui.generations, *stats)
	ui.selectedIndex = len(ui.generations) - 1
	ui.statsMutex.Unlock()

	ui.refresh()
}

// SetResult показывает итог оптимизации
func (ui *TermUI) SetResult(result models.RunResult) {
	ui.statsMutex.Lock()
	ui.result = &result
	ui.statsMutex.Unlock()

	ui.refresh()
}

// refresh до запуска интерфейса ничего не делает
func (ui *TermUI) refresh() {
	if p := ui.currentProgram(); p != nil {
		p.Send(refreshMsg{})
	}
}

func (ui *TermUI) currentProgram() *tea.Program {
	ui.programMutex.Lock()
	defer ui.programMutex.Unlock()
	return ui.program
}

// loadLogsFromFile перечитывает хвост JSON лога
func (ui *TermUI) loadLogsFromFile() error {
	file, err := os.Open(ui.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			// Файл не существует, это не ошибка
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var logs []string
	for scanner.Scan() {
		logs = append(logs, formatLogLine(scanner.Text()))
		// Ограничиваем количество логов
		if len(logs) > maxLogLines {
			logs = logs[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	ui.logsMutex.Lock()
	defer ui.logsMutex.Unlock()
	if len(logs) > 0 {
		ui.logs = logs
	}
	return nil
}

// formatLogLine превращает JSON запись zap в строку "[время] [уровень] сообщение (поле: значение)"
func formatLogLine(line string) string {
	var zapLog map[string]interface{}
	if err := json.Unmarshal([]byte(line), &zapLog); err != nil {
		// Не удалось распарсить JSON, добавляем как есть
		return line
	}

	level, _ := zapLog["level"].(string)
	ts, _ := zapLog["ts"].(string)
	msg, _ := zapLog["msg"].(string)
	level = ansiRegex.ReplaceAllString(level, "")

	timestamp := ""
	if t, err := time.Parse(logger.TimeLayout, ts); err == nil {
		timestamp = t.Format("15:04:05")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] [%s] %s", timestamp, level, msg)

	// Дополнительные поля в стабильном порядке
	keys := make([]string, 0, len(zapLog))
	for k := range zapLog {
		if k != "level" && k != "ts" && k != "msg" && k != "caller" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " (%s: %v)", k, zapLog[k])
	}
	return sb.String()
}

func renderLogsSection(logs []string, maxLogsToShow int) string {
	header := sectionHeaderStyle.Render("ЛОГИ")
	content := strings.Builder{}

	start := 0
	if len(logs) > maxLogsToShow {
		start = len(logs) - maxLogsToShow
	}

	for _, log := range logs[start:] {
		// Выделение по уровню логирования
		switch {
		case strings.Contains(log, "[ERROR]"):
			log = lipgloss.NewStyle().Foreground(errorColor).Render(log)
		case strings.Contains(log, "[WARN]"):
			log = lipgloss.NewStyle().Foreground(warningColor).Render(log)
		case strings.Contains(log, "[INFO]"):
			log = lipgloss.NewStyle().Foreground(successColor).Render(log)
		case strings.Contains(log, "[DEBUG]"):
			log = lipgloss.NewStyle().Foreground(lipgloss.Color("#9999ff")).Render(log)
		}
		content.WriteString("  " + log + "\n")
	}

	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, content.String()))
}

// renderGenerationsSection таблица поколений и гены выбранного
func renderGenerationsSection(generations []models.GenerationStats, total, selected, maxRows int) string {
	header := sectionHeaderStyle.Render(fmt.Sprintf("ПОКОЛЕНИЯ %d/%d", len(generations), total))
	content := strings.Builder{}

	if len(generations) == 0 {
		content.WriteString("  Ожидание данных...\n")
		return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, content.String()))
	}

	fmt.Fprintf(&content, "  %4s %14s %14s %14s %14s %8s %10s\n",
		"ген", "лучший", "медиана", "худший", "валидация", "оценено", "время")

	start := 0
	if len(generations) > maxRows {
		start = len(generations) - maxRows
		if selected < start {
			start = selected
		}
	}
	end := min(len(generations), start+maxRows)

	for i := start; i < end; i++ {
		g := generations[i]
		validation := "-"
		if g.Validation != nil {
			validation = fmt.Sprintf("%.4f", *g.Validation)
		}
		line := fmt.Sprintf("  %4d %14.4f %14.4f %14.4f %14s %8d %10s",
			g.Generation, g.Best, g.Median, g.Worst, validation, g.Evaluated, g.Duration.Round(time.Millisecond))

		best := lipgloss.NewStyle().Foreground(successColor)
		if g.Best < 0 {
			best = lipgloss.NewStyle().Foreground(errorColor)
		}
		if i == selected {
			line = "> " + line[2:]
			line = selectedStyle.Render(line)
		} else {
			line = best.Render(line)
		}
		content.WriteString(line + "\n")
	}

	if selected >= 0 && selected < len(generations) {
		content.WriteString("\n  Гены лучшей особи:\n")
		content.WriteString(formatGenes(generations[selected].BestGenes, 12))
	}

	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, header, content.String()))
}

func formatGenes(genes []float64, perLine int) string {
	var sb strings.Builder
	for i, g := range genes {
		if i%perLine == 0 {
			sb.WriteString("  ")
		}
		fmt.Fprintf(&sb, "%.3f ", g)
		if i%perLine == perLine-1 || i == len(genes)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func renderResult(result *models.RunResult) string {
	style := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	if result.ValidationFitness < 0 {
		style = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	}
	return style.Render(fmt.Sprintf("Готово: обучение %.4f, валидация %.4f, время %s (run %s)",
		result.TrainingFitness, result.ValidationFitness,
		result.FinishedAt.Sub(result.StartedAt).Round(time.Second), result.RunID))
}

// Методы для bubbletea
func (m bubbleModel) Init() tea.Cmd {
	return nil
}

func (m bubbleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.ui.statsMutex.Lock()
		defer m.ui.statsMutex.Unlock()
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up":
			m.ui.selectedIndex = max(0, m.ui.selectedIndex-1)
		case "down":
			m.ui.selectedIndex = max(0, min(len(m.ui.generations)-1, m.ui.selectedIndex+1))
		case "end":
			m.ui.selectedIndex = max(0, len(m.ui.generations)-1)
		}

	case tea.WindowSizeMsg:
		m.ui.width = msg.Width
		m.ui.height = msg.Height

	case refreshMsg:
		// Просто обновляем UI
	}

	return m, nil
}

func (m bubbleModel) View() string {
	m.ui.statsMutex.RLock()
	m.ui.logsMutex.RLock()
	defer m.ui.statsMutex.RUnlock()
	defer m.ui.logsMutex.RUnlock()

	rows := max(5, m.ui.height/3)
	parts := []string{
		titleStyle.Render(m.ui.title),
		"\n",
		renderGenerationsSection(m.ui.generations, m.ui.total, m.ui.selectedIndex, rows),
	}
	if m.ui.result != nil {
		parts = append(parts, "\n", renderResult(m.ui.result))
	}
	parts = append(parts,
		"\n",
		renderLogsSection(m.ui.logs, max(6, m.ui.height/3-2)),
		"\n",
		footerStyle.Render("Клавиши: ↑/↓ - поколения, End - последнее, Q - выход"),
	)

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
