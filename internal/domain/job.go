package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JobState represents the lifecycle state of a scrape job.
// Values move created → running → completed | partially_failed.
type JobState string

const (
	JobStateCreated         JobState = "created"
	JobStateRunning         JobState = "running"
	JobStateCompleted       JobState = "completed"
	JobStatePartiallyFailed JobState = "partially_failed"
)

// IsTerminal reports whether no further transitions happen from s.
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStatePartiallyFailed
}

// PlatformStatus represents the state of one platform sweep inside a job.
// Values move pending → running → succeeded | failed.
type PlatformStatus string

const (
	PlatformStatusPending   PlatformStatus = "pending"
	PlatformStatusRunning   PlatformStatus = "running"
	PlatformStatusSucceeded PlatformStatus = "succeeded"
	PlatformStatusFailed    PlatformStatus = "failed"
)

// IsTerminal reports whether the platform sweep has finished.
func (s PlatformStatus) IsTerminal() bool {
	return s == PlatformStatusSucceeded || s == PlatformStatusFailed
}

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return jsonValue(a)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	return jsonScan(value, a, "StringArray")
}

// PlatformList is an ordered set of platforms stored as JSON.
type PlatformList []Platform

// Value implements the driver.Valuer interface for database serialization.
func (l PlatformList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue(l)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (l *PlatformList) Scan(value interface{}) error {
	return jsonScan(value, l, "PlatformList")
}

// PlatformStatusMap maps each requested platform to its sweep status.
type PlatformStatusMap map[Platform]PlatformStatus

// Value implements the driver.Valuer interface for database serialization.
func (m PlatformStatusMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return jsonValue(m)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (m *PlatformStatusMap) Scan(value interface{}) error {
	return jsonScan(value, m, "PlatformStatusMap")
}

// PlatformErrorMap holds the orchestration error recorded for failed platforms.
type PlatformErrorMap map[Platform]string

// Value implements the driver.Valuer interface for database serialization.
func (m PlatformErrorMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return jsonValue(m)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (m *PlatformErrorMap) Scan(value interface{}) error {
	return jsonScan(value, m, "PlatformErrorMap")
}

// ReportMap holds the finished report of each platform.
type ReportMap map[Platform]*PlatformRunReport

// Value implements the driver.Valuer interface for database serialization.
func (m ReportMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return jsonValue(m)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (m *ReportMap) Scan(value interface{}) error {
	return jsonScan(value, m, "ReportMap")
}

// ConsolidatedRecords is the consolidation output attached to a job.
type ConsolidatedRecords []ConsolidatedRecord

// Value implements the driver.Valuer interface for database serialization.
func (r ConsolidatedRecords) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	return jsonValue(r)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (r *ConsolidatedRecords) Scan(value interface{}) error {
	return jsonScan(value, r, "ConsolidatedRecords")
}

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(value interface{}, dest interface{}, typeName string) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan " + typeName)
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, dest)
}

// Job is one orchestrated scrape request and its progress.
// Only the orchestrator mutates a job, through the job store.
type Job struct {
	ID             string              `gorm:"type:text;primaryKey" json:"job_id"`
	Platforms      PlatformList        `gorm:"type:text" json:"platforms"`
	Hotels         StringArray         `gorm:"type:text" json:"hotels,omitempty"`
	State          JobState            `gorm:"type:text;index:idx_scrape_jobs_state;default:created" json:"state"`
	PlatformStatus PlatformStatusMap   `gorm:"type:text" json:"platform_status"`
	PlatformErrors PlatformErrorMap    `gorm:"type:text" json:"platform_errors,omitempty"`
	Reports        ReportMap           `gorm:"type:text" json:"-"`
	Consolidated   ConsolidatedRecords `gorm:"type:text" json:"-"`
	CreatedAt      time.Time           `gorm:"index:idx_scrape_jobs_created_at" json:"created_at"`
	StartedAt      *time.Time          `json:"started_at,omitempty"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
	UpdatedAt      time.Time           `json:"-"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string {
	return "scrape_jobs"
}

// NewJob creates a job in the created state with every platform pending.
func NewJob(id string, platforms []Platform, hotels []string, createdAt time.Time) *Job {
	job := &Job{
		ID:             id,
		Platforms:      append(PlatformList(nil), platforms...),
		State:          JobStateCreated,
		PlatformStatus: make(PlatformStatusMap, len(platforms)),
		PlatformErrors: make(PlatformErrorMap),
		Reports:        make(ReportMap),
		CreatedAt:      createdAt,
	}
	if len(hotels) > 0 {
		job.Hotels = append(StringArray(nil), hotels...)
	}
	for _, p := range platforms {
		job.PlatformStatus[p] = PlatformStatusPending
	}
	return job
}

// Clone returns a copy whose maps and slices can be mutated independently.
// Reports are shared because they are immutable once attached.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Platforms = append(PlatformList(nil), j.Platforms...)
	c.Hotels = append(StringArray(nil), j.Hotels...)
	c.Consolidated = append(ConsolidatedRecords(nil), j.Consolidated...)

	c.PlatformStatus = make(PlatformStatusMap, len(j.PlatformStatus))
	for k, v := range j.PlatformStatus {
		c.PlatformStatus[k] = v
	}
	c.PlatformErrors = make(PlatformErrorMap, len(j.PlatformErrors))
	for k, v := range j.PlatformErrors {
		c.PlatformErrors[k] = v
	}
	c.Reports = make(ReportMap, len(j.Reports))
	for k, v := range j.Reports {
		c.Reports[k] = v
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// AllPlatformsDone reports whether every requested platform reached a terminal status.
func (j *Job) AllPlatformsDone() bool {
	for _, p := range j.Platforms {
		if !j.PlatformStatus[p].IsTerminal() {
			return false
		}
	}
	return true
}

// Finish moves the job to its terminal state: completed when every platform
// succeeded, partially_failed otherwise.
func (j *Job) Finish(at time.Time) {
	state := JobStateCompleted
	for _, p := range j.Platforms {
		if j.PlatformStatus[p] != PlatformStatusSucceeded {
			state = JobStatePartiallyFailed
			break
		}
	}
	j.State = state
	j.CompletedAt = &at
}

// ReportList returns the available reports in requested-platform order.
func (j *Job) ReportList() []*PlatformRunReport {
	reports := make([]*PlatformRunReport, 0, len(j.Reports))
	for _, p := range j.Platforms {
		if r, ok := j.Reports[p]; ok && r != nil {
			reports = append(reports, r)
		}
	}
	return reports
}

// SetPlatformStatus records the status of one platform sweep and, for a
// failure, its cause.
func (j *Job) SetPlatformStatus(p Platform, status PlatformStatus, cause string) {
	if j.PlatformStatus == nil {
		j.PlatformStatus = make(PlatformStatusMap)
	}
	j.PlatformStatus[p] = status
	if cause != "" {
		if j.PlatformErrors == nil {
			j.PlatformErrors = make(PlatformErrorMap)
		}
		j.PlatformErrors[p] = cause
	}
}

// AttachReport stores a finished report and marks its platform succeeded.
func (j *Job) AttachReport(report *PlatformRunReport) {
	if j.Reports == nil {
		j.Reports = make(ReportMap)
	}
	j.Reports[report.Platform()] = report
	j.SetPlatformStatus(report.Platform(), PlatformStatusSucceeded, "")
}
