// Package headless runs a capture without an interactive UI.
//
// The headless executor is the default front end of the CLI. It drives a single capture
// session, renders the session's panels and progress as colored console lines, prints a
// final summary and optionally writes that summary as a JSON artifact.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│            Headless Executor            │
//	│  - Console View (panels + progress)     │
//	│  - Leveled colored Logger               │
//	│  - Summary artifact                     │
//	└──────────────────┬──────────────────────┘
//	                   │
//	                   ▼
//	        ┌──────────────────────┐
//	        │ capture.Orchestrator │
//	        └──────────────────────┘
//
// Example usage:
//
//	logger := headless.NewLogger(headless.ParseLogLevel("normal"))
//	view := headless.NewView(logger)
//
//	orch, _ := capture.New(capture.Options{View: view, ...})
//	exec := headless.NewExecutor(orch, logger, headless.Options{URL: url})
//	handle, err := exec.Run(ctx)
package headless
