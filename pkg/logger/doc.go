// Package logger provides structured logging over zerolog.
//
// Records go to a console writer on stderr and, when LoggingConfig.File is
// set, to a rotated file as JSON:
//
//	err := logger.Initialize(&config.LoggingConfig{
//	    Level: "debug",
//	    File:  "/var/log/instaapi.log",
//	})
//
//	log := logger.GetLogger().WithField("username", "jane")
//	log.Info("session restored")
//	log.WithError(err).Error("login failed")
//
// Tests use NewTestLogger to capture records, or NewNopLogger to drop them.
package logger
