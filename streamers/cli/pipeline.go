package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
)

// PipelineHandler implements streamers.PipelineHandler for terminal output
type PipelineHandler struct {
	mu       sync.Mutex
	spinner  *spinner
	renderer *glamour.TermRenderer
}

// NewPipelineHandler creates a new CLI pipeline handler
func NewPipelineHandler() *PipelineHandler {
	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	return &PipelineHandler{
		spinner:  newSpinner(),
		renderer: renderer,
	}
}

func (s *PipelineHandler) PipelineStarted(runID string, mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("\n%s%s=== Content pipeline (%s) ===%s\n", ColorBold, ColorCyan, mode, ColorReset)
	fmt.Printf("%sRun: %s%s\n\n", ColorGray, runID, ColorReset)
}

func (s *PipelineHandler) PipelineCompleted(runID string) {
	s.spinner.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("\n%s%s=== Pipeline run %s completed ===%s\n", ColorBold, ColorGreen, runID, ColorReset)
}

func (s *PipelineHandler) StageStarted(stageName string, detail string) {
	s.spinner.Stop()
	s.mu.Lock()
	fmt.Printf("\n%s%s--- Stage: %s ---%s\n", ColorBold, ColorCyan, stageName, ColorReset)
	if detail != "" {
		fmt.Printf("%s%s%s\n", ColorGray, detail, ColorReset)
	}
	s.mu.Unlock()
	s.spinner.Start("", fmt.Sprintf("Generating %s...", stageName))
}

func (s *PipelineHandler) StageCompleted(stageName string, iterations int, qualityScore int) {
	s.spinner.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("%s✓%s %s%s%s approved (score %d, %s)\n", ColorGreen, ColorReset, ColorBold, stageName, ColorReset,
		qualityScore, plural(iterations, "iteration"))
}

func (s *PipelineHandler) StageFailed(stageName string, err error) {
	s.spinner.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("\n%s%s[Stage '%s' FAILED: %v]%s\n", ColorBold, ColorRed, stageName, err, ColorReset)
}

func (s *PipelineHandler) IterationStarted(stageName string, iteration int, max int) {
	s.spinner.Stop()
	s.spinner.Start("", fmt.Sprintf("%s: attempt %d/%d...", stageName, iteration, max))
}

func (s *PipelineHandler) ContentEvaluated(stageName string, iteration int, status string, qualityScore int, feedback string) {
	s.spinner.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == "APPROVED" {
		fmt.Printf("  %s[%d] %s (%d)%s\n", ColorGreen, iteration, status, qualityScore, ColorReset)
		return
	}
	fmt.Printf("  %s[%d] %s (%d): %s%s\n", ColorYellow, iteration, status, qualityScore, truncate(feedback, 120), ColorReset)
}

func (s *PipelineHandler) ArtifactCreated(kind string, title string, url string) {
	s.spinner.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf("  %s•%s %s '%s': %s%s%s\n", ColorGray, ColorReset, kind, title, ColorLightBrown, url, ColorReset)
}

func (s *PipelineHandler) Warning(message string) {
	s.spinner.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(os.Stderr, "%sWarning: %s%s\n", ColorYellow, message, ColorReset)
}

func (s *PipelineHandler) Summary(markdown string) {
	s.spinner.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()

	rendered := markdown
	if s.renderer != nil {
		if out, err := s.renderer.Render(markdown); err == nil {
			rendered = out
		}
	}
	fmt.Printf("\n%s\n", strings.TrimSpace(rendered))
}

// truncate shortens a string to max length, adding ellipsis if needed
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// spinner handles the loading animation
type spinner struct {
	frames  []string
	stop    chan struct{}
	stopped chan struct{}
	mu      sync.Mutex
	running bool
}

func newSpinner() *spinner {
	return &spinner{
		frames:  []string{"◐", "◓", "◑", "◒"},
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (s *spinner) Start(prefix string, message string) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.stopped)
		i := 0
		for {
			select {
			case <-s.stop:
				fmt.Print("\r\033[K") // Clear line
				return
			default:
				if prefix != "" {
					fmt.Printf("\r%s %s%s%s %s", prefix, ColorOrange, s.frames[i%len(s.frames)], ColorReset, message)
				} else {
					fmt.Printf("\r%s%s%s %s", ColorGray, s.frames[i%len(s.frames)], ColorReset, message)
				}
				i++
				time.Sleep(80 * time.Millisecond)
			}
		}
	}()
}

func (s *spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stop)
	<-s.stopped
}
