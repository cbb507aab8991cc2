package domain

import "errors"

var (
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrRateLimited           = errors.New("rate limited")
	ErrTimeout               = errors.New("provider timed out waiting for result")
	ErrModelExtractionFailed = errors.New("model extraction failed")
	ErrNoUsableOCRResult     = errors.New("no usable OCR result")
	ErrNoUsableConsensus     = errors.New("no usable consensus")
	ErrUnsupportedDocument   = errors.New("unsupported document format")
)
