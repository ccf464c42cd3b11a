package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

// Category groups error codes by how the caller is expected to react.
type Category string

const (
	CategoryNone       Category = ""
	CategoryGeneral    Category = "general"
	CategorySpec       Category = "spec"
	CategoryData       Category = "data"
	CategoryConfig     Category = "config"
	CategoryEvaluation Category = "evaluation"
	CategoryMarketData Category = "market_data"
)

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Spec errors (100-199)
	ErrCodeMissingField      ErrorCode = 100
	ErrCodeUnknownReference  ErrorCode = 101
	ErrCodeEmptyGraph        ErrorCode = 102
	ErrCodeDuplicateNode     ErrorCode = 103
	ErrCodeCycleDetected     ErrorCode = 104
	ErrCodeUnresolvedBranch  ErrorCode = 105
	ErrCodeInvalidSpec       ErrorCode = 106
	ErrCodeBuildFailed       ErrorCode = 107
	ErrCodeInvalidVersion    ErrorCode = 108
	ErrCodeVersionMismatch   ErrorCode = 109
	ErrCodeInvalidSpecFormat ErrorCode = 110

	// Data errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeInsufficientData      ErrorCode = 201
	ErrCodeTimestampNotFound     ErrorCode = 202
	ErrCodeNoPriceAsOf           ErrorCode = 203
	ErrCodeQueryFailed           ErrorCode = 204
	ErrCodeDataSourceUnavailable ErrorCode = 205
	ErrCodeInvalidPrice          ErrorCode = 206

	// Config errors (300-399)
	ErrCodeUnsupportedOperator    ErrorCode = 300
	ErrCodeUnsupportedIndicator   ErrorCode = 301
	ErrCodeIndicatorNotFound      ErrorCode = 302
	ErrCodeIndicatorAlreadyExists ErrorCode = 303
	ErrCodeInvalidConfiguration   ErrorCode = 304
	ErrCodeInvalidParameter       ErrorCode = 305

	// Evaluation errors (400-499)
	ErrCodeEvaluationAborted ErrorCode = 400
	ErrCodeStepLimitExceeded ErrorCode = 401
	ErrCodeStrategyNotLoaded ErrorCode = 402
	ErrCodeNoDatasource      ErrorCode = 403
	ErrCodeEngineNotReady    ErrorCode = 404

	// Market data errors (700-799)
	ErrCodeMarketDataFetchFailed ErrorCode = 700
	ErrCodeMarketDataWriteFailed ErrorCode = 701
	ErrCodeInvalidProvider       ErrorCode = 702
)

// Category returns the category the code belongs to.
func (c ErrorCode) Category() Category {
	switch {
	case c >= 100 && c < 200:
		return CategorySpec
	case c >= 200 && c < 300:
		return CategoryData
	case c >= 300 && c < 400:
		return CategoryConfig
	case c >= 400 && c < 500:
		return CategoryEvaluation
	case c >= 700 && c < 800:
		return CategoryMarketData
	default:
		return CategoryGeneral
	}
}
