package scripts

import (
	"time"

	"github.com/Shopify/go-lua"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// registerNetboxLibrary registers the `netbox` global library into the Lua
// state. Scripts call the functions with the colon syntax, so the first
// argument on the stack is the library table itself.
func registerNetboxLibrary(l *lua.State, logger zerolog.Logger, scriptName string) {
	funcs := []lua.RegistryFunction{
		// log writes a message to the application log, tagged with the
		// script's name.
		//
		// @param message string The message to log.
		// @param level string (optional) "debug", "info", "warn" or "error".
		// Defaults to "info".
		{Name: "log", Function: func(l *lua.State) int {
			message := lua.CheckString(l, 2)
			level := lua.OptString(l, 3, "info")

			event := logger.Info()
			switch level {
			case "debug":
				event = logger.Debug()
			case "warn":
				event = logger.Warn()
			case "error":
				event = logger.Error()
			}
			event.Str("script", scriptName).Msg(message)
			return 0
		}},
		// uuid generates a new UUIDv7 and returns it as a string.
		//
		// @return string The new UUID.
		{Name: "uuid", Function: func(l *lua.State) int {
			id, err := uuid.NewV7()
			if err != nil {
				lua.Errorf(l, "generating uuid: %s", err.Error())
				return 0
			}
			l.PushString(id.String())
			return 1
		}},
		// timestamp returns the current time as a Unix timestamp in milliseconds.
		//
		// @return number The current timestamp.
		{Name: "timestamp", Function: func(l *lua.State) int {
			l.PushNumber(float64(time.Now().UnixMilli()))
			return 1
		}},
	}

	lua.NewLibrary(l, funcs)
	l.SetGlobal("netbox")
}

// registerReject adds `netbox.reject` to an already-registered library.
// Calling it records the message and aborts the chunk, which the engine
// reports as a rejection. Only validator runs get this function.
func registerReject(l *lua.State, rejection *string) {
	l.Global("netbox")
	if l.IsNil(-1) {
		l.Pop(1)
		return
	}

	l.PushGoFunction(func(l *lua.State) int {
		message := lua.CheckString(l, 2)
		*rejection = message
		lua.Errorf(l, "rejected: %s", message)
		return 0
	})
	l.SetField(-2, "reject")
	l.Pop(1)
}
