package report

import (
	"fmt"
	"strings"
	"time"
)

// Batch is one delivery of a buffer task.
type Batch struct {
	Seq     int           `json:"seq" yaml:"seq"`
	Values  []string      `json:"values" yaml:"values"`
	Elapsed time.Duration `json:"elapsed_ns" yaml:"elapsed"`
}

// Text implements Texter.
func (b Batch) Text() string {
	return fmt.Sprintf("batch %d after %s: [%s]", b.Seq, b.Elapsed.Round(time.Millisecond), strings.Join(b.Values, " "))
}

// Job is the outcome of one task of the scope command.
type Job struct {
	Name  string `json:"name" yaml:"name"`
	State string `json:"state" yaml:"state"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Text implements Texter.
func (j Job) Text() string {
	if j.Error != "" {
		return fmt.Sprintf("%-10s %-10s %s", j.Name, j.State, j.Error)
	}
	return fmt.Sprintf("%-10s %s", j.Name, j.State)
}

// Event is a lifetime event together with the bindings it fired.
type Event struct {
	Event string   `json:"event" yaml:"event"`
	Fired []string `json:"fired,omitempty" yaml:"fired,omitempty"`
	Error string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Text implements Texter.
func (e Event) Text() string {
	var b strings.Builder
	b.WriteString(e.Event)
	if len(e.Fired) > 0 {
		b.WriteString(" -> cancelled: ")
		b.WriteString(strings.Join(e.Fired, ", "))
	}
	if e.Error != "" {
		b.WriteString(" (")
		b.WriteString(e.Error)
		b.WriteString(")")
	}
	return b.String()
}

// Summary closes a command's output.
type Summary struct {
	Command string `json:"command" yaml:"command"`
	Result  string `json:"result" yaml:"result"`
}

// Text implements Texter.
func (s Summary) Text() string {
	return fmt.Sprintf("%s: %s", s.Command, s.Result)
}
