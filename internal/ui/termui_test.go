package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/skalibog/genetrader/internal/config"
	"github.com/skalibog/genetrader/pkg/models"
)

func TestFormatLogLine(t *testing.T) {
	line := `{"level":"INFO","ts":"17.10.2026 - 12:30:45.000000001+00:00","caller":"brkga/optimizer.go:90","msg":"Поколение завершено","поколение":3,"лучший":12.5}`
	got := formatLogLine(line)

	want := "[12:30:45] [INFO] Поколение завершено (лучший: 12.5) (поколение: 3)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := formatLogLine("plain text"); got != "plain text" {
		t.Fatalf("non JSON lines must pass through, got %q", got)
	}
}

func TestLoadLogsKeepsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json.log")
	var sb strings.Builder
	for i := 0; i < maxLogLines+10; i++ {
		sb.WriteString(`{"level":"INFO","msg":"m"}` + "\n")
	}
	sb.WriteString(`{"level":"WARN","msg":"последняя"}` + "\n")
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ui := NewTermUI(ctx, config.UIConfig{RefreshRate: 1000}, "test", path, 10)

	ui.logsMutex.RLock()
	defer ui.logsMutex.RUnlock()
	if len(ui.logs) != maxLogLines {
		t.Fatalf("expected %d lines, got %d", maxLogLines, len(ui.logs))
	}
	if last := ui.logs[len(ui.logs)-1]; !strings.Contains(last, "последняя") {
		t.Fatalf("expected the newest line last, got %q", last)
	}
}

func TestGenerationsNavigation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ui := NewTermUI(ctx, config.UIConfig{RefreshRate: 1000}, "genetrader", filepath.Join(t.TempDir(), "none.log"), 3)

	validation := 1.5
	for i := 0; i < 3; i++ {
		ui.ObserveGeneration(ctx, &models.GenerationStats{
			Generation: i, Best: float64(i), Duration: time.Second,
			Validation: &validation, BestGenes: []float64{0.1, 0.2},
		})
	}
	if ui.selectedIndex != 2 {
		t.Fatalf("new generations must be selected, got %d", ui.selectedIndex)
	}

	model := bubbleModel{ui: ui}
	model.Update(tea.KeyMsg{Type: tea.KeyUp})
	model.Update(tea.KeyMsg{Type: tea.KeyUp})
	model.Update(tea.KeyMsg{Type: tea.KeyUp})
	if ui.selectedIndex != 0 {
		t.Fatalf("selection must stop at the first generation, got %d", ui.selectedIndex)
	}
	model.Update(tea.KeyMsg{Type: tea.KeyDown})
	if ui.selectedIndex != 1 {
		t.Fatalf("expected generation 1, got %d", ui.selectedIndex)
	}

	view := model.View()
	for _, part := range []string{"ПОКОЛЕНИЯ 3/3", "1.5000", "0.100 0.200"} {
		if !strings.Contains(view, part) {
			t.Fatalf("expected %q in view", part)
		}
	}

	ui.SetResult(models.RunResult{RunID: "r1", TrainingFitness: 2, ValidationFitness: 1.5})
	if !strings.Contains(model.View(), "run r1") {
		t.Fatalf("result must be shown")
	}

	if _, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); cmd == nil {
		t.Fatalf("q must quit")
	}
}

func TestRenderGenerationsEmpty(t *testing.T) {
	if out := renderGenerationsSection(nil, 100, 0, 10); !strings.Contains(out, "Ожидание данных") {
		t.Fatalf("expected a waiting message")
	}
}
