package api

import (
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// LogModule installs the global "log" table so scripts write to the editor log
// instead of stdout, which belongs to the terminal UI.
type LogModule struct {
	logger zerolog.Logger
}

// NewLogModule creates a log module for the script named owner.
func NewLogModule(owner string, logger zerolog.Logger) *LogModule {
	return &LogModule{logger: logger.With().Str("script", owner).Logger()}
}

// Name returns the module name.
func (m *LogModule) Name() string {
	return "log"
}

// Register registers the module into the Lua state.
func (m *LogModule) Register(L *lua.LState) error {
	mod := L.NewTable()
	L.SetField(mod, "debug", L.NewFunction(m.level(zerolog.DebugLevel)))
	L.SetField(mod, "info", L.NewFunction(m.level(zerolog.InfoLevel)))
	L.SetField(mod, "warn", L.NewFunction(m.level(zerolog.WarnLevel)))
	L.SetField(mod, "error", L.NewFunction(m.level(zerolog.ErrorLevel)))
	L.SetGlobal(m.Name(), mod)

	// print goes to the log too
	L.SetGlobal("print", L.NewFunction(m.print))
	return nil
}

func (m *LogModule) level(lvl zerolog.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		m.logger.WithLevel(lvl).Msg(L.CheckString(1))
		return 0
	}
}

// print(...) joins its arguments with tabs like the stock print.
func (m *LogModule) print(L *lua.LState) int {
	n := L.GetTop()
	msg := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			msg += "\t"
		}
		msg += L.ToStringMeta(L.Get(i)).String()
	}
	m.logger.Info().Msg(msg)
	return 0
}

// DefaultRegistry returns a registry with the editor and log modules.
func DefaultRegistry(logger zerolog.Logger) *Registry {
	r := NewRegistry()
	_ = r.Register("api", func(owner string, host API, inv Invoker) Module {
		return NewEditorModule(owner, host, inv, logger)
	})
	_ = r.Register("log", func(owner string, _ API, _ Invoker) Module {
		return NewLogModule(owner, logger)
	})
	return r
}
