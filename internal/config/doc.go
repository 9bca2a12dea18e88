// Package config provides configuration management for mcreport.
//
// Configuration is loaded and merged in the following order, later sources
// overriding earlier ones:
//
//  1. Defaults (DefaultConfig)
//  2. User configuration (~/.config/mcreport/config.yaml)
//  3. Project configuration (./.mcreport/config.yaml)
//  4. An explicit file passed with --config
//  5. Environment variables (RCON_HOST, RCON_PORT, RCON_PWD, RCON_TIMEOUT,
//     MCREPORT_FAIL_ON_FAILURE)
//
// Command line flags are applied on top by the cmd package. A YAML layer only
// overrides the keys it sets; lists replace the lower layer's list.
//
// # Configuration Structure
//
//	rcon:
//	  host: localhost
//	  port: 25575
//	  timeout: 10s
//
//	datapack:
//	  lanternLoad: true
//
//	coverage:
//	  workers: 4
//	  tests:
//	    includes:
//	      - '.*/functions/test/(.*/)?test_[^/]*\.mcfunction'
//
//	unitTests:
//	  actor: "@p"
//	  pollAttempts: 3
//	  pollInterval: 1s
//
//	report:
//	  output: report.md
//	  failOnFailure: false
//
// The RCON password is never read from YAML. It comes from RCON_PWD or, when
// that is unset, from the OS keyring entry of the server address.
package config
