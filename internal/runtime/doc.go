// Package runtime wires the store driver, queue engine, and batch adapters
// into a single-node tickq instance. It exposes Open/Close and a basic health
// check used by the HTTP surface.
//
// Example:
//
//	cfg, _ := config.Load("")
//	rt, _ := runtime.Open(cfg)
//	defer rt.Close()
//	res := rt.Engine().RunOnce(ctx, "default", rt.Launcher(), rt.Poller(), cfg.LaunchLag())
package runtime
