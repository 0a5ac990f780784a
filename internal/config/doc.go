// Package config provides loading and environment overlay for tickq runtime
// configuration. It exposes a Default() baseline, a JSON file loader, and the
// TICKQ_* environment overlay applied on top.
//
// Example:
//
//	cfg, err := config.Load("/etc/tickq.json")
//	if err != nil {
//	    // defaults alone are valid: config.Load("") never fails
//	}
//	rt, _ := runtime.Open(cfg)
//	defer rt.Close()
package config
