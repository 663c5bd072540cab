package models

import "encoding/json"

// RunRequest is the job envelope accepted by POST /run and /runsync.
// Input stays raw so the job layer can report field-level decode errors.
type RunRequest struct {
	ID    string          `json:"id"`
	Input json.RawMessage `json:"input" binding:"required"`
}
