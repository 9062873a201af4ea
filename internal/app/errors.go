package app

import "errors"

// Sentinel errors for preconditions the commands check before a run.
var (
	ErrNoResume      = errors.New("no resume configured: set resume_path in the config file")
	ErrNoCredentials = errors.New("job board credentials not configured: set board_email and board_password")
)
