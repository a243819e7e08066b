// Package logger provides leveled, colored logging for inkvault.
//
// # Verbosity Levels
//
//   - --verbose: Shows info and warning messages
//   - --debug: Shows all messages including debug details
//
// Without flags, only errors and critical warnings are shown.
//
// # Log Methods
//
//	Logger.Infof()          // Shown with --verbose or --debug
//	Logger.Debugf()         // Shown only with --debug
//	Logger.Warnf()          // Shown with --verbose or --debug
//	Logger.WarnfAlways()    // Always shown
//	Logger.Errorf()         // Always shown
//	Logger.ErrorfAndReturn() // Returns the formatted error, logs it with --debug
//
// Logger is a plain value, so background workers receive their own copy when
// a job is dispatched. Never pass key material, passphrases or document
// plaintext to a log call.
package logger
