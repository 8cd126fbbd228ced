package xerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinderError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	finderErr := New(ErrCodeFileNotFound, "file not found: test.docx", originalErr)

	require.NotNil(t, finderErr)
	assert.Equal(t, originalErr, errors.Unwrap(finderErr))
	assert.True(t, errors.Is(finderErr, originalErr))
}

func TestFinderError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "settings.json not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] settings.json not found",
		},
		{
			name:     "extraction error",
			code:     ErrCodeExtractionFailed,
			message:  "report.docx could not be parsed",
			expected: "[ERR_301_EXTRACTION_FAILED] report.docx could not be parsed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestFinderError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeFileNotFound, "file A not found", nil)
	err2 := New(ErrCodeFileNotFound, "file B not found", nil)
	assert.True(t, errors.Is(err1, err2))
}

func TestFinderError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeFileNotFound, "file not found", nil)
	err2 := New(ErrCodeConfigNotFound, "config not found", nil)
	assert.False(t, errors.Is(err1, err2))
}

func TestFinderError_WithDetails_AddsContext(t *testing.T) {
	err := New(ErrCodeFileNotFound, "file not found", nil)
	err = err.WithDetail("path", "/docs/report.docx")
	err = err.WithDetail("size", "1024")

	assert.Equal(t, "/docs/report.docx", err.Details["path"])
	assert.Equal(t, "1024", err.Details["size"])
}

func TestFinderError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeFileNotFound, CategoryIO},
		{ErrCodeExtractionFailed, CategoryExtraction},
		{ErrCodeEmbeddingFailed, CategoryExtraction},
		{ErrCodeInvalidInput, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestFinderError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeManifestCorrupt, SeverityFatal},
		{ErrCodeDiskFull, SeverityFatal},
		{ErrCodeFileNotFound, SeverityError},
		{ErrCodeTokenizationWarn, SeverityWarning},
		{ErrCodeCancelled, SeverityInfo},
		{ErrCodeEmbeddingFailed, SeverityWarning}, // retryable, so warning
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestFinderError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeEmbeddingFailed, true},
		{ErrCodeStoreWrite, true},
		{ErrCodeFileNotFound, false},
		{ErrCodeManifestCorrupt, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesFinderErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")
	finderErr := Wrap(ErrCodeInternal, originalErr)

	require.NotNil(t, finderErr)
	assert.Equal(t, ErrCodeInternal, finderErr.Code)
	assert.Equal(t, "something went wrong", finderErr.Message)
	assert.Equal(t, originalErr, finderErr.Cause)
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"retryable FinderError", New(ErrCodeEmbeddingFailed, "timeout", nil), true},
		{"non-retryable FinderError", New(ErrCodeFileNotFound, "not found", nil), false},
		{"wrapped retryable error", Wrap(ErrCodeEmbeddingFailed, errors.New("wrapped")), true},
		{"standard error", errors.New("standard error"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"manifest corrupt", New(ErrCodeManifestCorrupt, "manifest corrupt", nil), true},
		{"disk full", New(ErrCodeDiskFull, "no space left", nil), true},
		{"non-fatal error", New(ErrCodeFileNotFound, "not found", nil), false},
		{"standard error", errors.New("standard error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}
