package config

import "errors"

// Config validation errors
var (
	ErrMissingRPCURL                = errors.New("config: rpc url is required")
	ErrMissingExecutorKey           = errors.New("config: executor private key is required")
	ErrInvalidNamesContract         = errors.New("config: names contract address is invalid")
	ErrInvalidSubscriptionsContract = errors.New("config: subscriptions contract address is invalid")
	ErrMissingGateways              = errors.New("config: at least one storage gateway is required")
	ErrInvalidPort                  = errors.New("config: port must be between 1 and 65535")
	ErrInvalidMaxAttempts           = errors.New("config: max attempts must be positive")
)
