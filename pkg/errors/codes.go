// Package errors provides error codes for easysms
package errors

// ErrorCode represents an easysms error code
type ErrorCode string

// Caller misconfiguration
const (
	// ErrInvalidArgument indicates an unknown strategy, an unresolvable gateway
	// or a gateway instance that does not satisfy the gateway contract
	ErrInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrInvalidConfig indicates a configuration document that cannot be parsed
	ErrInvalidConfig ErrorCode = "INVALID_CONFIG"

	// ErrAlreadyRegistered indicates a duplicate registration of a name
	ErrAlreadyRegistered ErrorCode = "ALREADY_REGISTERED"
)

// Runtime conditions
const (
	// ErrNoDefaultGateway indicates that an unqualified gateway lookup had no default
	ErrNoDefaultGateway ErrorCode = "NO_DEFAULT_GATEWAY"

	// ErrNoGatewayAvailable indicates that every attempted gateway failed
	ErrNoGatewayAvailable ErrorCode = "NO_GATEWAY_AVAILABLE"
)

// ErrorCodeInfo provides information about an error code
type ErrorCodeInfo struct {
	Code        ErrorCode `json:"code"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
}

var errorCodeInfoMap = map[ErrorCode]ErrorCodeInfo{
	ErrInvalidArgument: {
		Code:        ErrInvalidArgument,
		Category:    "argument",
		Description: "Invalid argument supplied by the caller",
	},
	ErrInvalidConfig: {
		Code:        ErrInvalidConfig,
		Category:    "configuration",
		Description: "Configuration could not be loaded",
	},
	ErrAlreadyRegistered: {
		Code:        ErrAlreadyRegistered,
		Category:    "argument",
		Description: "Name is already registered",
	},
	ErrNoDefaultGateway: {
		Code:        ErrNoDefaultGateway,
		Category:    "runtime",
		Description: "No default gateway configured",
	},
	ErrNoGatewayAvailable: {
		Code:        ErrNoGatewayAvailable,
		Category:    "runtime",
		Description: "All attempted gateways failed",
	},
}

// GetErrorCodeInfo returns information about an error code
func GetErrorCodeInfo(code ErrorCode) ErrorCodeInfo {
	info, exists := errorCodeInfoMap[code]
	if !exists {
		return ErrorCodeInfo{
			Code:        code,
			Category:    "unknown",
			Description: "Unknown error code",
		}
	}
	return info
}

// GetCategory returns the category of an error code
func GetCategory(code ErrorCode) string {
	return GetErrorCodeInfo(code).Category
}
