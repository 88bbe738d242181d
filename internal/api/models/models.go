// Package models holds the request and response bodies of the status API.
package models

import (
	"time"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Phase   string `json:"phase" example:"watching" doc:"Supervisor phase: idle, spawning, watching, stopping, stopped"`
	RunID   string `json:"run_id" example:"6f1c2a0e-8d0b-4a57-9b43-3d1f0c7e2b11" doc:"Identifier shared by every process of this run"`
	Message string `json:"message" example:"Plant is running" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go runtime version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Operating system and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Worker models
type WorkerData struct {
	Role       string    `json:"role" example:"axis-x" doc:"Worker role"`
	PID        int       `json:"pid" example:"4242" doc:"Process id, 0 if the spawn failed"`
	State      string    `json:"state" example:"running" doc:"Worker state: starting, running, stopping, exited, error"`
	StartedAt  time.Time `json:"started_at" doc:"When the worker was spawned"`
	ExitedAt   time.Time `json:"exited_at,omitzero" doc:"When the worker was reaped"`
	ExitStatus string    `json:"exit_status,omitempty" example:"exit status 0" doc:"Exit status once reaped"`
	LastError  string    `json:"last_error,omitempty" doc:"Last spawn or reap error"`
}

type WorkerListData struct {
	Workers []WorkerData `json:"workers" doc:"Workers in spawn order"`
	Count   int          `json:"count" example:"5" doc:"Number of workers"`
}

type WorkerListResponse struct {
	Body WorkerListData
}

// Watchdog models
type WatchdogData struct {
	Dir            string    `json:"dir" example:"logs" doc:"Watched log directory"`
	TimeoutSeconds float64   `json:"timeout_seconds" example:"60" doc:"Inactivity timeout"`
	Running        bool      `json:"running" example:"true" doc:"Whether the watchdog is waiting"`
	LastActivity   time.Time `json:"last_activity,omitzero" doc:"Time of the last log activity"`
	LastFile       string    `json:"last_file,omitempty" example:"world.log" doc:"Log file of the last activity"`
	Resets         uint64    `json:"resets" example:"120" doc:"Number of resets so far"`
	Outcome        string    `json:"outcome,omitempty" example:"expired" doc:"Outcome once finished: expired, terminated"`
}

type WatchdogResponse struct {
	Body WatchdogData
}

// Axis request models
type AxisRequestInput struct {
	Axis string `path:"axis" enum:"x,z" example:"x" doc:"Axis name"`
}

type AxisRequestData struct {
	Axis    string `json:"axis" example:"x" doc:"Axis name"`
	Request string `json:"request" example:"halt" doc:"Request delivered: halt, home"`
	Message string `json:"message" example:"Request sent" doc:"Status message"`
}

type AxisRequestResponse struct {
	Body AxisRequestData
}

// Shutdown models
type ShutdownData struct {
	Accepted bool   `json:"accepted" example:"true" doc:"Whether the request was recorded"`
	Message  string `json:"message" example:"Shutdown requested" doc:"Status message"`
}

type ShutdownResponse struct {
	Status int
	Body   ShutdownData
}

// Log models
type LogsInput struct {
	Limit int `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Maximum number of entries, newest last"`
}

type LogEntryData struct {
	Timestamp  time.Time      `json:"timestamp" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"supervisor" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

type LogsData struct {
	Entries []LogEntryData `json:"entries" doc:"Recent supervisor log entries"`
	Count   int            `json:"count" example:"100" doc:"Number of entries"`
}

type LogsResponse struct {
	Body LogsData
}
