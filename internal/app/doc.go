// Package app provides the shared bootstrap for the pipeline commands.
//
// Every command (prepare, analyze-usage, analyze-equipment, visualize) runs
// through Main, which:
//
//  1. Resolves the base directory and loads configuration
//  2. Creates the output directories
//  3. Starts the JSON logger (stdout and logs/<command>.log) with a run trace ID
//  4. Initializes tracing and run metrics
//  5. Runs the command, one Stage per logical step
//  6. Writes logs/<command>.manifest.json and the metrics textfile
//  7. Maps the result to an exit code
//
// # Usage
//
//	func main() {
//	    os.Exit(app.Main(app.Options{Command: "prepare"}, run))
//	}
//
//	func run(ctx context.Context, rt *app.Runtime) error {
//	    return rt.Stage(ctx, "read", func(ctx context.Context) ([]string, error) {
//	        ...
//	    })
//	}
//
// RegisterFlags adds the shared -base and -version flags. With -version, Main
// prints the version string and exits 0 without touching the base directory.
//
// SIGINT and SIGTERM cancel the run context; a canceled run exits with 130.
package app
