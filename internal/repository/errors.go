package repository

import "errors"

var (
	// ErrNavigationFailed is a transient navigation failure. Retried a
	// bounded number of times, then the site is skipped.
	ErrNavigationFailed = errors.New("navigation failed")
	// ErrNavigationTimeout means the wait condition was not reached in time.
	ErrNavigationTimeout = errors.New("navigation timed out")
	// ErrHarvestFailed means a loaded page could not be captured.
	ErrHarvestFailed = errors.New("harvest failed")
	// ErrOracleUnavailable is a failed call to the extraction oracle.
	ErrOracleUnavailable = errors.New("extraction oracle call failed")
	// ErrOracleFormat means the oracle response held no parseable JSON array.
	ErrOracleFormat = errors.New("extraction oracle returned malformed output")
	// ErrRecordValidation marks a single extracted record that was dropped.
	ErrRecordValidation = errors.New("record failed validation")
	// ErrPersistenceFailed aborts the run after the batch was rolled back.
	ErrPersistenceFailed = errors.New("persistence transaction failed")
	// ErrSessionAcquisition means the browser could not be started.
	ErrSessionAcquisition = errors.New("browser session acquisition failed")
	// ErrNoCandidates means search returned nothing to visit.
	ErrNoCandidates = errors.New("search returned no candidate sites")

	ErrQueueEmpty  = errors.New("queue is empty")
	ErrRunNotFound = errors.New("run not found")
)
