// Package domain holds the platform's entity structs, mirroring the
// dataclass-like schemas of the original backend (backend/schemas/*.py,
// backend/repositories/*.py in original_source) as strongly typed Go
// structs with JSON tags matching the wire shape the admin HTTP surface
// exposes.
package domain

import "time"

// UseCase is a named unit of ML/AI work, registered statically at startup.
type UseCase struct {
	Key          string   `json:"key"`
	Label        string   `json:"label"`
	Category     string   `json:"category"`
	Domain       string   `json:"domain"`
	TargetColumn string   `json:"target_column,omitempty"`
	NumericHints []string `json:"numeric_hints,omitempty"`
}

// KeyPattern is the allowed shape of a UseCase.Key: it is also used
// anywhere a use-case key is interpolated into a filesystem path or SQL
// identifier, so it must never contain path separators or SQL metacharacters.
const KeyPattern = `^[A-Za-z0-9_\-]{1,120}$`

// ColumnProfile describes one column of an uploaded dataset.
type ColumnProfile struct {
	Name      string `json:"name"`
	Dtype     string `json:"dtype"`
	NonNull   int    `json:"non_null"`
	NullCount int    `json:"null_count"`
	Unique    int    `json:"unique"`
}

// Dataset is an uploaded or discovered tabular file.
type Dataset struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	OriginalFilename string          `json:"original_filename"`
	FilePath         string          `json:"file_path"`
	FileSize         int64           `json:"file_size"`
	Rows             int             `json:"rows"`
	Cols             int             `json:"cols"`
	Columns          []ColumnProfile `json:"columns"`
	CreatedAt        time.Time       `json:"created_at"`
}

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether this status ends the job's lifecycle.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// Job is one execution of a subtask or an entire pipeline.
type Job struct {
	ID           int64      `json:"id"`
	JobType      string     `json:"job_type"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"`
	ConfigJSON   string     `json:"config_json,omitempty"`
	ResultJSON   string     `json:"result_json,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// AlertOperator is the comparison used to evaluate an Alert's threshold.
type AlertOperator string

const (
	OpGT AlertOperator = ">"
	OpLT AlertOperator = "<"
	OpEQ AlertOperator = "="
	OpGE AlertOperator = ">="
	OpLE AlertOperator = "<="
	OpNE AlertOperator = "!="
)

// Alert is a threshold rule evaluated against preprocessing/model metrics.
type Alert struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Metric        string        `json:"metric"`
	Threshold     float64       `json:"threshold"`
	Operator      AlertOperator `json:"operator"`
	UseCaseID     string        `json:"uc_id"`
	Severity      string        `json:"severity"`
	Enabled       bool          `json:"enabled"`
	LastTriggered *time.Time    `json:"last_triggered,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Evaluate applies the operator against an observed value.
func (a Alert) Evaluate(value float64) bool {
	switch a.Operator {
	case OpGT:
		return value > a.Threshold
	case OpLT:
		return value < a.Threshold
	case OpEQ:
		return value == a.Threshold
	case OpGE:
		return value >= a.Threshold
	case OpLE:
		return value <= a.Threshold
	case OpNE:
		return value != a.Threshold
	default:
		return false
	}
}

// AuditEntryType categorizes an AuditEntry.
type AuditEntryType string

const (
	AuditInfo   AuditEntryType = "info"
	AuditCreate AuditEntryType = "create"
	AuditModify AuditEntryType = "modify"
	AuditDelete AuditEntryType = "delete"
	AuditError  AuditEntryType = "error"
	AuditWarn   AuditEntryType = "warning"
	AuditSystem AuditEntryType = "system"
)

// AuditEntry is an append-only record of a state-changing operation.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Action    string         `json:"action"`
	Detail    string         `json:"detail"`
	User      string         `json:"user"`
	EntryType AuditEntryType `json:"entry_type"`
	CreatedAt time.Time      `json:"created_at"`
}

// IntegrationStatus reports reachability of an external service.
type IntegrationStatus string

const (
	IntegrationConnected    IntegrationStatus = "connected"
	IntegrationDisconnected IntegrationStatus = "disconnected"
)

// Integration is connection configuration for an external service.
// ConfigJSON field values holding secrets are encrypted in place by the
// repository layer before persistence.
type Integration struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	ConfigJSON string            `json:"config_json"`
	Status     IntegrationStatus `json:"status"`
	LastSync   *time.Time        `json:"last_sync,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Text2SQLHistory records one natural-language-to-SQL round trip.
type Text2SQLHistory struct {
	ID              int64     `json:"id"`
	NaturalLanguage string    `json:"natural_language"`
	GeneratedSQL    string    `json:"generated_sql"`
	Executed        bool      `json:"executed"`
	RowCount        int       `json:"row_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// GovernanceScore is a per-use-case AI-governance scoring record.
type GovernanceScore struct {
	ID                 int64     `json:"id"`
	UseCaseKey          string    `json:"use_case_key"`
	FairnessScore       float64   `json:"fairness_score"`
	ExplainabilityScore float64   `json:"explainability_score"`
	RobustnessScore     float64   `json:"robustness_score"`
	OverallScore        float64   `json:"overall_score"`
	RiskTier            string    `json:"risk_tier"`
	ComputedAt          time.Time `json:"computed_at"`
}

// VectorDBJob tracks one ingestion run of the vector-store subtask.
type VectorDBJob struct {
	ID            int64      `json:"id"`
	UseCaseKey    string     `json:"use_case_key"`
	Collection    string     `json:"collection"`
	ChunksIndexed int        `json:"chunks_indexed"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// PreprocessingReport is the per-use-case analysis artifact, persisted
// both to a run-indexed SQL table and as JSON under preprocessing_output/.
type PreprocessingReport struct {
	UseCaseKey                    string                 `json:"use_case_key"`
	Label                         string                 `json:"label"`
	DataQualityScore              float64                `json:"data_quality_score"`
	ColumnProfiles                []ColumnProfile        `json:"column_profiles"`
	OutlierSummary                map[string]interface{} `json:"outlier_summary,omitempty"`
	CorrelationTopPairs           []CorrelationPair      `json:"correlation_top_pairs,omitempty"`
	TargetDistribution            map[string]int         `json:"target_distribution,omitempty"`
	NormalizationParams           map[string]interface{} `json:"normalization_params,omitempty"`
	StandardizationParams         map[string]interface{} `json:"standardization_params,omitempty"`
	FeatureEngineeringSuggestions []string                `json:"feature_engineering_suggestions,omitempty"`
	RunTimestamp                  time.Time               `json:"run_timestamp"`
	ElapsedSeconds                float64                  `json:"elapsed_seconds"`
}

// CorrelationPair is one entry of PreprocessingReport.CorrelationTopPairs.
type CorrelationPair struct {
	ColumnA     string  `json:"column_a"`
	ColumnB     string  `json:"column_b"`
	Correlation float64 `json:"correlation"`
}
