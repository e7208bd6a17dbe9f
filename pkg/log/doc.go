/*
Package log provides structured logging for kvdb using zerolog.

The package wraps a single global zerolog.Logger. Library code obtains a
component-scoped child logger via WithComponent and logs normally; the host
process may call Init once to redirect output, change the level, or switch
between JSON and console formatting. A Database built without calling Init
still logs (to stdout, info level) so the library never panics or blocks on
an unconfigured logger.

Usage:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})
	logger := log.WithComponent("engine")
	logger.Debug().Str("key", key).Msg("rollback applied")
*/
package log
