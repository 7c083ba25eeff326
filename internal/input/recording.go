package input

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/keyweave/internal/input/conflict"
	"github.com/dshills/keyweave/internal/input/macro"
	"github.com/dshills/keyweave/internal/input/sequence"
	"github.com/dshills/keyweave/internal/notify"
	"github.com/dshills/keyweave/internal/shortcut"
)

const recorderLabel = "Recorder"

// StartRecording begins capturing page interactions. Steps left from an
// earlier recording are discarded. The recording stops on its own once the
// maxRecordingLength setting elapses.
func (e *Engine) StartRecording() error {
	if err := e.recorder.Start(e.clock.Now()); err != nil {
		return err
	}

	e.mu.Lock()
	e.recorded = nil
	e.buf = sequence.Buffer{}
	e.stopDeferredLocked()
	if e.limit != nil {
		e.limit.Stop()
		e.limit = nil
	}
	if limit := e.settings.MaxRecording(); limit > 0 {
		e.limit = e.clock.AfterFunc(limit, e.recordingLimitReached)
	}
	e.mu.Unlock()

	e.log.Info("recording started")
	e.notifier.Notify(notify.Info("Recording started").WithLabel(recorderLabel))
	return nil
}

// StopRecording ends the recording and keeps its steps pending until they
// are saved as a macro or discarded. An empty recording returns
// macro.ErrNothingRecorded.
func (e *Engine) StopRecording() ([]macro.Step, error) {
	e.mu.Lock()
	if e.limit != nil {
		e.limit.Stop()
		e.limit = nil
	}
	e.mu.Unlock()

	steps, err := e.recorder.Stop()
	if errors.Is(err, macro.ErrNothingRecorded) {
		e.notifier.Notify(notify.Info("Nothing recorded").WithLabel(recorderLabel))
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.recorded = steps
	e.mu.Unlock()

	e.log.Info("recording stopped with %d steps", len(steps))
	e.notifier.Notify(notify.Success(fmt.Sprintf("Recorded %d steps", len(steps))).WithLabel(recorderLabel))
	return slices.Clone(steps), nil
}

// ToggleRecording starts a recording when idle and stops it otherwise.
func (e *Engine) ToggleRecording() {
	if e.recorder.IsRecording() {
		if _, err := e.StopRecording(); err != nil {
			e.log.Debug("stop recording: %v", err)
		}
		return
	}
	if err := e.StartRecording(); err != nil {
		e.log.Debug("start recording: %v", err)
	}
}

// IsRecording reports whether a recording is in progress.
func (e *Engine) IsRecording() bool {
	return e.recorder.IsRecording()
}

func (e *Engine) recordingLimitReached() {
	if !e.recorder.IsRecording() {
		return
	}
	e.log.Info("recording limit reached")
	e.notifier.Notify(notify.Info("Recording limit reached").WithLabel(recorderLabel))
	if _, err := e.StopRecording(); err != nil {
		e.log.Debug("stop recording: %v", err)
	}
}

// PendingSteps returns the steps of the last stopped recording.
func (e *Engine) PendingSteps() []macro.Step {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.recorded)
}

// RemoveStep drops one pending step by index.
func (e *Engine) RemoveStep(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	steps, err := macro.RemoveStep(e.recorded, i)
	if err != nil {
		return err
	}
	e.recorded = steps
	return nil
}

// DiscardRecording drops the pending steps.
func (e *Engine) DiscardRecording() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recorded = nil
}

// SaveMacro stores a macro definition. Without explicit steps the pending
// recording is used and cleared once saved.
func (e *Engine) SaveMacro(ctx context.Context, opts shortcut.MacroOptions) (shortcut.Definition, *conflict.Warning, error) {
	fromRecording := len(opts.Steps) == 0
	if fromRecording {
		opts.Steps = e.PendingSteps()
	}

	def, err := shortcut.NewMacro(opts)
	if err != nil {
		return shortcut.Definition{}, nil, err
	}
	saved, warning, err := e.Register(ctx, def)
	if err != nil && saved.ID == "" {
		return saved, warning, err
	}
	if fromRecording {
		e.DiscardRecording()
	}
	return saved, warning, err
}

// Preview plays steps once. Without explicit steps the pending recording is
// played. A preview while another macro plays returns
// macro.ErrAlreadyPlaying.
func (e *Engine) Preview(ctx context.Context, steps []macro.Step) error {
	if len(steps) == 0 {
		steps = e.PendingSteps()
	}
	if len(steps) == 0 {
		return macro.ErrNoSteps
	}
	m := macro.Macro{Steps: steps, Loop: 1, Speed: e.Settings().PlaybackSpeed}
	return e.exec.PlayMacro(ctx, m, "Preview")
}

// Play starts m in the background under label. Use Wait for completion.
func (e *Engine) Play(ctx context.Context, m macro.Macro, label string) error {
	return e.exec.PlayMacro(ctx, m, label)
}
