// Package common holds the types shared by all packages of rDict: the error
// taxonomy, the dictionary and redis configuration structs and the logger
// factory used to format the output of all package loggers.
//
// Errors:
//
//	Every failure produced by rDict itself is an *Error carrying a RetCode.
//	Error.Is compares codes, so callers test for a failure class with the
//	sentinels, regardless of the message attached to the concrete error:
//
//	  if errors.Is(err, common.ErrKeyNotFound) {
//	      // handle missing key
//	  }
//
//	Failures of the remote store (network, timeouts, protocol errors) are
//	never wrapped into an *Error, they are returned as produced by the store
//	client so callers can apply their own retry policy.
//
// Logging:
//
//	Packages obtain their logger with logger.GetLogger(<name>) from the
//	dragonboat logger package. InitLoggers installs the rDict log format and
//	sets the level of all module loggers at once.
package common
