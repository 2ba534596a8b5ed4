package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/annogen/errors"
	"github.com/teranos/annogen/manager"
	"github.com/teranos/annogen/pulse"
)

// reporter receives run progress and the diagnostics of finished runs.
type reporter interface {
	pulse.ProgressEmitter

	// Report prints the diagnostics and failures of a finished run.
	Report(res manager.Result)
	// ReportCheck prints the artifacts a check found out of date.
	ReportCheck(res manager.CheckResult)
}

// newReporter returns a JSON event reporter writing to w, or a terminal one.
func newReporter(jsonOutput bool, w io.Writer, verbosity int) reporter {
	if jsonOutput {
		return NewJSONEmitter(w)
	}
	return NewCLIEmitter(verbosity)
}

// CLIEmitter prints progress to the terminal using pterm.
type CLIEmitter struct {
	mu        sync.Mutex
	verbosity int
}

// NewCLIEmitter creates a terminal emitter. Per-file progress is only
// printed from verbosity 1.
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return &CLIEmitter{verbosity: verbosity}
}

// EmitStage prints a stage announcement
func (e *CLIEmitter) EmitStage(stage string, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pterm.Printf("%s: %s\n", pterm.LightCyan(stage), message)
}

// EmitProgress prints one finished unit of work
func (e *CLIEmitter) EmitProgress(done, total int, item string) {
	if e.verbosity < 1 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pterm.Printf("  [%s/%d] %s\n", pterm.Green(fmt.Sprintf("%d", done)), total, item)
}

// EmitComplete prints the run summary
func (e *CLIEmitter) EmitComplete(summary map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	line := fmt.Sprintf("%v processed, %v up to date, %v written in %vms",
		summary["processed"], summary["up_to_date"], summary["written"], summary["duration_ms"])
	if failed, _ := summary["failed"].(int); failed > 0 {
		pterm.Error.Printf("Generation failed for %d files: %s\n", failed, line)
		return
	}
	pterm.Success.Printf("Generation complete: %s\n", line)
}

// EmitError prints an error
func (e *CLIEmitter) EmitError(stage string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pterm.Error.Printf("Error in %s: %v\n", stage, err)
}

// Report prints diagnostics, then the written artifacts at verbosity 1.
func (e *CLIEmitter) Report(res manager.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, d := range res.Diagnostics {
		if errors.IsFatal(d) {
			pterm.Error.Println(d.Error())
		} else {
			pterm.Warning.Println(d.Error())
		}
	}
	for _, f := range res.Failed {
		pterm.Printf("  %s %s\n", pterm.Red("failed"), f)
	}
	if e.verbosity >= 1 {
		for _, w := range res.Written {
			pterm.Printf("  %s %s\n", pterm.Green("wrote"), w)
		}
	}
}

// ReportCheck lists the out of date artifacts
func (e *CLIEmitter) ReportCheck(res manager.CheckResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if res.UpToDate() {
		pterm.Success.Println("Generated files are up to date")
		return
	}
	for _, f := range res.OutOfDate {
		pterm.Printf("  %s %s\n", pterm.Yellow("stale"), f)
	}
}

// ProgressEvent is one JSON line written by JSONEmitter.
type ProgressEvent struct {
	Type      string                 `json:"type"` // stage, progress, complete, error, diagnostic, check
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// JSONEmitter writes progress as JSON events, one per line.
type JSONEmitter struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewJSONEmitter creates a JSON emitter writing to w.
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{encoder: json.NewEncoder(w)}
}

func (e *JSONEmitter) emit(eventType string, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// Encoding a map of plain values does not fail; write errors have no reader to go to.
	_ = e.encoder.Encode(ProgressEvent{Type: eventType, Timestamp: time.Now(), Data: data})
}

// EmitStage emits a stage event
func (e *JSONEmitter) EmitStage(stage string, message string) {
	e.emit("stage", map[string]interface{}{"stage": stage, "message": message})
}

// EmitProgress emits a progress event
func (e *JSONEmitter) EmitProgress(done, total int, item string) {
	e.emit("progress", map[string]interface{}{"done": done, "total": total, "item": item})
}

// EmitComplete emits the run summary
func (e *JSONEmitter) EmitComplete(summary map[string]interface{}) {
	e.emit("complete", summary)
}

// EmitError emits an error event
func (e *JSONEmitter) EmitError(stage string, err error) {
	e.emit("error", map[string]interface{}{"stage": stage, "error": err.Error()})
}

// Report emits one diagnostic event per diagnostic and the list of failed files.
func (e *JSONEmitter) Report(res manager.Result) {
	for _, d := range res.Diagnostics {
		data := map[string]interface{}{
			"message": d.Error(),
			"fatal":   errors.IsFatal(d),
		}
		if c := errors.Category(d); c != nil {
			data["category"] = c.Error()
		}
		e.emit("diagnostic", data)
	}
	failed := append([]string(nil), res.Failed...)
	sort.Strings(failed)
	e.emit("result", map[string]interface{}{
		"success": res.Success,
		"failed":  failed,
		"written": res.Written,
	})
}

// ReportCheck emits the check outcome
func (e *JSONEmitter) ReportCheck(res manager.CheckResult) {
	e.emit("check", map[string]interface{}{
		"up_to_date":  res.UpToDate(),
		"out_of_date": res.OutOfDate,
	})
}
