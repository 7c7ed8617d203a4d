// Loads daemon configuration from the environment.
//
// Every setting has a default, so an unconfigured daemon talks to the local
// Docker socket, allows two live instances per team, and expires instances
// after twenty minutes. A remote daemon is used only when its host and all
// three TLS files are set; setting some of them is an error.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//
//	rt, err := runtime.New(cfg.Runtime())
//	eng := engine.New(rt, st, cat, cfg.Engine())
package config
