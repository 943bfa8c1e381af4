// Package models defines data structures and domain types.
package models

import "time"

// JobStatus is the lifecycle state of a queued generation job.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is a generation request queued in the jobs file by a content generator.
type Job struct {
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ID           string     `json:"id"`
	Prompt       string     `json:"prompt"`
	SystemPrompt string     `json:"system_prompt,omitempty"`
	Status       JobStatus  `json:"status"`
	Output       string     `json:"output,omitempty"`
	Backend      Backend    `json:"backend,omitempty"`
	Model        string     `json:"model,omitempty"`
	Error        string     `json:"error,omitempty"`
	Temperature  *float64   `json:"temperature,omitempty"`
	Complexity   Complexity `json:"complexity"`
	Degraded     bool       `json:"degraded,omitempty"`
}

// Request builds the dispatcher request for the job. A job without a
// temperature uses DefaultTemperature; an explicit 0 is kept.
func (j *Job) Request() Request {
	temp := DefaultTemperature
	if j.Temperature != nil {
		temp = *j.Temperature
	}
	return Request{
		Prompt:       j.Prompt,
		SystemPrompt: j.SystemPrompt,
		Temperature:  temp,
		Complexity:   j.Complexity,
	}
}

// Complete records a dispatch result on the job.
func (j *Job) Complete(r Result, at time.Time) {
	j.Backend = r.Backend
	j.Model = r.Model
	j.Degraded = r.Degraded
	j.CompletedAt = &at
	if r.Success {
		j.Status = JobDone
		j.Output = r.Output
		j.Error = ""
		return
	}
	j.Status = JobFailed
	j.Output = ""
	j.Error = r.Error
}

// JobSummary counts jobs per status.
type JobSummary struct {
	Pending int
	Running int
	Done    int
	Failed  int
}

// Total returns the number of jobs counted.
func (s JobSummary) Total() int {
	return s.Pending + s.Running + s.Done + s.Failed
}
