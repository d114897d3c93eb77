// Package config loads sqlitedrop configuration.
//
// Configuration is layered with koanf, lowest precedence first:
//
//  1. built-in defaults
//  2. a YAML file (--config, or sqlitedrop.yaml in the working directory)
//  3. SQLITEDROP_* environment variables, with "__" separating nested keys
//  4. command-line flags that were explicitly set
//
// The merged document is checked against an embedded CUE schema, which
// rejects unknown keys and out-of-range values, then decoded into Config and
// validated with struct tags.
//
// # Usage Example
//
//	cfg, err := config.Load(config.Options{File: "sqlitedrop.yaml", Flags: cmd.Flags()})
//	if err != nil {
//	    return err
//	}
//	if cfg.DatabaseType.Defined {
//	    fmt.Println(cfg.DatabaseType.Value)
//	}
package config
