package service

import (
	"errors"
	"fmt"
)

var (
	ErrNoData             = errors.New("no data")
	ErrUnknownEnvironment = errors.New("unknown environment")
	ErrUnknownClient      = errors.New("unknown client")
	ErrMissingCredentials = errors.New("no ftp destination has complete credentials")
	ErrRunNotFound        = errors.New("run not found")
)

type Stage string

const (
	StageFetch       Stage = "fetch"
	StageConsolidate Stage = "consolidate"
	StageBundle      Stage = "bundle"
	StageTransfer    Stage = "transfer"
)

// StageError names the step of a run that failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}
