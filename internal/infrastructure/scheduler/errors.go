package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when a stopped runner is asked to do work
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrSchedulerRunning is returned when jobs are registered after Start
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrJobNotFound is returned when a job name is not registered
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyRegistered is returned for duplicate job names
	ErrJobAlreadyRegistered = errors.New("job already registered")

	// ErrJobInProgress is returned when a job is triggered while its previous run is active
	ErrJobInProgress = errors.New("job already in progress")

	// ErrInvalidJob is returned when a job has no name, run func or interval
	ErrInvalidJob = errors.New("invalid job definition")
)
