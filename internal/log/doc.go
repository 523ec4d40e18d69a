// Package log builds the slog loggers used by printscan.
//
// Probe misses are logged at debug level together with the SNMP community
// string that was used. SecureHandler masks that attribute, and any other
// attribute whose key names a credential, so verbose output can be pasted
// into a bug report. A non-default community can additionally be registered
// as a secret; it is then cut out of messages and error texts as well.
//
//	logger := log.NewSecureLogger(os.Stderr, true, "office-rw")
//
//	logger.Debug("probe miss",
//	    "probe", "snmp",
//	    "address", "192.168.1.20",
//	    "community", "office-rw", // logged as ***REDACTED***
//	)
package log
