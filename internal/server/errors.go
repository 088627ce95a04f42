package server

import (
	"errors"
	"net/http"
)

type errorKind int

const (
	errNotFound errorKind = iota
	errWrongPhase
	errWrongActor
	errAlreadySubmitted
	errSelfTarget
	errWindowClosed
	errPrecondition
)

type gameError struct {
	kind errorKind
	msg  string
}

func (e *gameError) Error() string {
	return e.msg
}

func notFoundError(msg string) error {
	return &gameError{kind: errNotFound, msg: msg}
}

func wrongPhaseError(msg string) error {
	return &gameError{kind: errWrongPhase, msg: msg}
}

func wrongActorError(msg string) error {
	return &gameError{kind: errWrongActor, msg: msg}
}

func alreadySubmittedError(msg string) error {
	return &gameError{kind: errAlreadySubmitted, msg: msg}
}

func selfTargetError(msg string) error {
	return &gameError{kind: errSelfTarget, msg: msg}
}

func windowClosedError(msg string) error {
	return &gameError{kind: errWindowClosed, msg: msg}
}

func preconditionError(msg string) error {
	return &gameError{kind: errPrecondition, msg: msg}
}

func errorStatus(err error) int {
	var ge *gameError
	if errors.As(err, &ge) {
		switch ge.kind {
		case errNotFound:
			return http.StatusNotFound
		case errWrongActor:
			return http.StatusForbidden
		default:
			return http.StatusConflict
		}
	}
	return http.StatusConflict
}

func writeGameError(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err.Error())
}
