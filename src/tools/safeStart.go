package tools

import (
	"fmt"

	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/config/toml"
)

// SafeStart initializes the logger with panic recovery. Background jobs are
// started afterwards through a PanicGroup.
func SafeStart() {
	// Recover panics in main startup
	defer func() {
		if r := recover(); r != nil {
			fmt.Println("Recovered panic in main startup:", r)
		}
	}()

	cfg := toml.GetConfig()
	log.InitLogger(cfg.Log.Path, cfg.Log.Level)
	log.Logger.Info("starting", log.String("app", cfg.AppName), log.String("env", cfg.Environment))
}
