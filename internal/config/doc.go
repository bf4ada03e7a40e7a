// Package config loads review-agent settings from the environment.
//
// Values come from the process environment and an optional .env file. A
// variable already exported wins over the file. Unset variables take the
// defaults declared on Config.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	if err := cfg.RequireGitHub(); err != nil {
//	    return err
//	}
package config
