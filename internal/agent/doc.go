// Package agent exposes mcreport over the Model Context Protocol so that an
// assistant can list datapack functions and run report suites.
//
// The server speaks MCP over stdio and offers three tools:
//
//   - list_suites: names of the suites run_suites accepts
//   - run_suites: runs suites over datapacks and returns the markdown report
//   - list_functions: lists the call ids of a datapack's functions
//
// Example usage:
//
//	srv := agent.NewServer(agent.Options{Suites: suites, Version: version})
//	if err := srv.ServeStdio(); err != nil {
//	    log.Fatal(err)
//	}
package agent
