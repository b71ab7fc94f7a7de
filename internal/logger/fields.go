package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldJobURL is the structured log field key for the posting URL.
	FieldJobURL = "job_url"
	// FieldJobTitle is the structured log field key for the posting title.
	FieldJobTitle = "job_title"
	// FieldCompany is the structured log field key for the hiring company.
	FieldCompany = "company"
	// FieldRunID identifies a single orchestrated run.
	FieldRunID = "run_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields safely attaches the provided fields to the logger.
// If the logger is nil or no fields are supplied, the input logger is returned
// unchanged, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// JobFields returns the standard fields describing a job posting.
// Empty values are ignored to keep log entries compact when information is missing.
func JobFields(url, title, company string) []zap.Field {
	return StringFields(
		StringField{Key: FieldJobURL, Value: url},
		StringField{Key: FieldJobTitle, Value: title},
		StringField{Key: FieldCompany, Value: company},
	)
}

// WithJob attaches the job fields to the provided logger.
func WithJob(logger *zap.Logger, url, title, company string) *zap.Logger {
	return WithFields(logger, JobFields(url, title, company)...)
}
