package apperror

// messages maps error codes to human-readable messages.
var messages = map[Code]string{
	// General
	CodeInvalidInput:       "Invalid input provided",
	CodeInvalidState:       "Invalid state for this operation",
	CodeNotFound:           "Resource not found",
	CodeConfigurationError: "Configuration error",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "An unknown error occurred",

	// Quote fetch
	CodeVenueUnavailable: "Venue is unavailable",
	CodePairNotSupported: "Trading pair not supported on this venue",
	CodeVenueRateLimited: "Venue rate limit exceeded",
	CodeVenueAuthFailed:  "Venue authentication failed",

	// Evaluation
	CodeNoValidOpportunity: "No valid arbitrage opportunity",
	CodeZeroTradeAmount:    "Trade amount rounds to zero at venue precision",

	// Commit
	CodeInvalidTradeAmount:  "Invalid trade amount",
	CodeBuyLegFailed:        "Buy leg order failed",
	CodeSellLegFailed:       "Sell leg order failed after buy leg filled",
	CodeCredentialsRequired: "Venue credentials required for real execution",
	CodeOrderRejected:       "Order rejected by venue",

	// Infrastructure
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeCircuitOpen:              "Circuit breaker is open",
}
