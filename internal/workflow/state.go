package workflow

import (
	"errors"
	"fmt"

	"rentscore/internal/model"
)

var (
	// ErrInFlight is returned when an analysis is already running; the call was a no-op.
	ErrInFlight = errors.New("analysis already in progress")
	// ErrNothingStaged is returned by Analyze when no file has been accepted.
	ErrNothingStaged = errors.New("no file staged")
	// ErrInvalidTransition is returned for events the current phase does not accept.
	ErrInvalidTransition = errors.New("invalid workflow transition")
)

// Phase is the controller's lifecycle phase.
type Phase int

const (
	PhaseIdle Phase = iota
	// PhaseDragging is a visual sub-state of idle; it never triggers network activity.
	PhaseDragging
	PhaseUploading
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDragging:
		return "dragging"
	case PhaseUploading:
		return "uploading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type eventKind int

const (
	evDragEnter eventKind = iota
	evDragLeave
	evFileAccepted
	evFileRejected
	evAnalyze
	evSucceeded
	evFailed
	evReset
)

type event struct {
	kind    eventKind
	file    *model.StagedFile
	message string
}

// state is the phase together with the data that phase carries. It is only ever
// produced by next, so combinations like "uploading with an error message" cannot
// occur.
type state struct {
	phase      Phase
	file       *model.StagedFile
	message    string
	validation bool
}

// next is the single transition function of the upload lifecycle.
func next(s state, e event) (state, error) {
	switch e.kind {
	case evDragEnter:
		if s.phase == PhaseIdle || s.phase == PhaseDragging {
			return state{phase: PhaseDragging, file: s.file}, nil
		}
	case evDragLeave:
		if s.phase == PhaseDragging {
			return state{phase: PhaseIdle, file: s.file}, nil
		}
		if s.phase == PhaseIdle {
			return s, nil
		}
	case evFileAccepted:
		if s.phase == PhaseUploading {
			return s, ErrInFlight
		}
		if e.file == nil {
			return s, ErrNothingStaged
		}
		return state{phase: PhaseIdle, file: e.file}, nil
	case evFileRejected:
		if s.phase == PhaseUploading {
			return s, ErrInFlight
		}
		return state{phase: PhaseError, message: e.message, validation: true}, nil
	case evAnalyze:
		switch s.phase {
		case PhaseUploading:
			return s, ErrInFlight
		case PhaseIdle, PhaseDragging:
			if s.file == nil {
				return s, ErrNothingStaged
			}
			return state{phase: PhaseUploading, file: s.file}, nil
		}
	case evSucceeded:
		if s.phase == PhaseUploading {
			return state{phase: PhaseSuccess, file: s.file}, nil
		}
	case evFailed:
		if s.phase == PhaseUploading {
			return state{phase: PhaseError, message: e.message}, nil
		}
	case evReset:
		if s.phase != PhaseUploading {
			return state{phase: PhaseIdle}, nil
		}
		return s, ErrInFlight
	}
	return s, fmt.Errorf("%w: %d in %s", ErrInvalidTransition, e.kind, s.phase)
}
