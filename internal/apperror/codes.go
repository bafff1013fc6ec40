package apperror

// Code represents a unique error code for the application.
type Code string

// General error codes.
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Quote fetch error codes. Per-venue and recoverable: the scheduler
// retries on the next poll tick.
const (
	CodeVenueUnavailable Code = "VENUE_UNAVAILABLE"
	CodePairNotSupported Code = "PAIR_NOT_SUPPORTED"
	CodeVenueRateLimited Code = "VENUE_RATE_LIMITED"
	CodeVenueAuthFailed  Code = "VENUE_AUTH_FAILED"
)

// Evaluation error codes. Benign: the controller keeps monitoring.
const (
	CodeNoValidOpportunity Code = "NO_VALID_OPPORTUNITY"
	CodeZeroTradeAmount    Code = "ZERO_TRADE_AMOUNT"
)

// Commit error codes. Terminal for the decision cycle; surfaced to the
// operator and force a return to Idle.
const (
	CodeInvalidTradeAmount  Code = "INVALID_TRADE_AMOUNT"
	CodeBuyLegFailed        Code = "BUY_LEG_FAILED"
	CodeSellLegFailed       Code = "SELL_LEG_FAILED"
	CodeCredentialsRequired Code = "CREDENTIALS_REQUIRED"
	CodeOrderRejected       Code = "ORDER_REJECTED"
)

// Infrastructure error codes.
const (
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeCircuitOpen              Code = "CIRCUIT_OPEN"
)

// IsFetchCode reports whether code belongs to the per-venue fetch
// taxonomy.
func IsFetchCode(code Code) bool {
	switch code {
	case CodeVenueUnavailable, CodePairNotSupported, CodeVenueRateLimited, CodeVenueAuthFailed:
		return true
	}
	return false
}

// IsCommitCode reports whether code belongs to the commit taxonomy.
func IsCommitCode(code Code) bool {
	switch code {
	case CodeInvalidTradeAmount, CodeBuyLegFailed, CodeSellLegFailed,
		CodeCredentialsRequired, CodeOrderRejected:
		return true
	}
	return false
}
