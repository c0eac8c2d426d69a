// Package mcoutput defines the Output collaborator that the update engine,
// addon installer, and resolver report human-facing progress, prompts, and
// errors through. Formatting and localization of these messages is an
// external concern (see spec Non-goals); this package only defines the
// shapes and a logging-backed default implementation.
package mcoutput

import (
	"context"
	"fmt"

	"github.com/mcvm-launcher/mcvm-sub000/src/logging"
)

// Progress reports completion of N of Total discrete units of work
// within one stage (an asset download batch, a library fetch batch, ...).
type Progress struct {
	Stage   string
	Current int
	Total   int
}

// Output is the sink for everything a running update/install/launch
// wants to tell the outside world.
type Output interface {
	Progress(ctx context.Context, p Progress)
	Notice(ctx context.Context, message string)
	Error(ctx context.Context, err error)
	// PromptYesNo asks the user a yes/no question, defaulting to
	// defaultAnswer if the collaborator cannot prompt interactively.
	PromptYesNo(ctx context.Context, defaultAnswer bool, message string) (bool, error)
}

// LogOutput is the default Output, reporting everything through a Logger
// and auto-answering prompts with their default (suitable for
// non-interactive/batch embedders).
type LogOutput struct {
	Log logging.Logger
}

// NewLogOutput builds a LogOutput over the given logger.
func NewLogOutput(log logging.Logger) *LogOutput {
	return &LogOutput{Log: log}
}

func (o *LogOutput) Progress(ctx context.Context, p Progress) {
	o.Log.Info(ctx, "progress", logging.F("stage", p.Stage), logging.F("current", p.Current), logging.F("total", p.Total))
}

func (o *LogOutput) Notice(ctx context.Context, message string) {
	o.Log.Info(ctx, message)
}

func (o *LogOutput) Error(ctx context.Context, err error) {
	o.Log.WithError(err).Error(ctx, "update error")
}

func (o *LogOutput) PromptYesNo(ctx context.Context, defaultAnswer bool, message string) (bool, error) {
	o.Log.Warn(ctx, fmt.Sprintf("%s (auto-answered %v, no interactive prompt wired)", message, defaultAnswer))
	return defaultAnswer, nil
}
