// Command modshell hosts the mod manager's extension shell.
//
// Usage:
//
//	modshell run [files...]     compose the shell and run it (headless)
//	modshell activate [files]   hand an activation to the running instance
//	modshell graph              print the resolved composition graph
//	modshell cache inspect      show the composition cache record
//	modshell cache clear        delete the composition cache
//
// Configuration comes from the environment (see internal/infrastructure/config);
// flags override it. Only the first instance runs a shell: later `run` calls
// forward their activation to it over the diagnostics server and exit.
package main
