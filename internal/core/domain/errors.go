package domain

import "go.trai.ch/zerr"

var (
	// ErrTaskAlreadyExists is returned when attempting to add a task with a name that already exists.
	ErrTaskAlreadyExists = zerr.New("task already exists")

	// ErrInvalidTaskName is returned when a task is registered without a name.
	ErrInvalidTaskName = zerr.New("invalid task name")

	// ErrMissingDependency is returned when a task references a prerequisite that doesn't exist in the graph.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrCycleDetected is returned when a cycle is detected in the task dependency graph.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrTaskNotFound is returned when a requested task is not found in the graph.
	ErrTaskNotFound = zerr.New("task not found")

	// ErrNoTargetsSpecified is returned when no targets are specified for the run command.
	ErrNoTargetsSpecified = zerr.New("no targets specified")

	// ErrNoAction is returned when a task has no registered action.
	ErrNoAction = zerr.New("task has no action")

	// ErrBuildExecutionFailed is returned when the build execution fails.
	ErrBuildExecutionFailed = zerr.New("build execution failed")

	// ErrTaskExecutionFailed is returned when a task execution fails.
	ErrTaskExecutionFailed = zerr.New("task execution failed")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrUnknownProfile is returned when a run profile name is not configured.
	ErrUnknownProfile = zerr.New("unknown run profile")

	// ErrEnvFileReadFailed is returned when a profile env file cannot be loaded.
	ErrEnvFileReadFailed = zerr.New("failed to read profile env file")

	// ErrProcessStartFailed is returned when the companion process cannot be launched.
	ErrProcessStartFailed = zerr.New("failed to start companion process")

	// ErrProcessStopFailed is returned when the companion process cannot be signalled.
	ErrProcessStopFailed = zerr.New("failed to stop companion process")

	// ErrPIDFileInvalid is returned when a PID file does not contain a process id.
	ErrPIDFileInvalid = zerr.New("pid file does not contain a valid pid")

	// ErrProcessNotReady is returned when the companion does not answer within the probe budget.
	ErrProcessNotReady = zerr.New("companion process did not become ready")

	// ErrJobListRequestFailed is returned when the critical-CSS job list cannot be fetched.
	ErrJobListRequestFailed = zerr.New("failed to fetch critical css job list")

	// ErrJobListStatus is returned when the job list endpoint answers with a non-200 status.
	ErrJobListStatus = zerr.New("critical css job list returned unexpected status")

	// ErrJobListParseFailed is returned when the job list body is not valid.
	ErrJobListParseFailed = zerr.New("failed to parse critical css job list")

	// ErrInvalidJob is returned when a job descriptor misses its url or filename.
	ErrInvalidJob = zerr.New("invalid critical css job")

	// ErrRenderFailed is returned when the renderer cannot extract critical CSS.
	ErrRenderFailed = zerr.New("failed to render critical css")

	// ErrEmptyCriticalCSS is returned when the renderer produced no CSS for a page.
	ErrEmptyCriticalCSS = zerr.New("renderer returned empty critical css")

	// ErrIncompleteExtraction is returned when fewer artifacts than jobs were written.
	ErrIncompleteExtraction = zerr.New("critical css extraction incomplete")

	// ErrArtifactReadFailed is returned when a critical CSS artifact cannot be read for injection.
	ErrArtifactReadFailed = zerr.New("failed to read critical css artifact")

	// ErrStyleCompileFailed is returned when a stylesheet fails to compile.
	ErrStyleCompileFailed = zerr.New("failed to compile stylesheet")

	// ErrMinifyFailed is returned when minification of an asset fails.
	ErrMinifyFailed = zerr.New("failed to minify asset")

	// ErrLintFailed is returned when the script linter reports problems.
	ErrLintFailed = zerr.New("lint failed")

	// ErrBundleSourceNotFound is returned when a referenced file is missing from every search path.
	ErrBundleSourceNotFound = zerr.New("bundle source not found in search paths")

	// ErrMalformedBuildBlock is returned when a build block is not terminated.
	ErrMalformedBuildBlock = zerr.New("malformed build block")

	// ErrManifestReadFailed is returned when a bower manifest cannot be read.
	ErrManifestReadFailed = zerr.New("failed to read bower manifest")

	// ErrFileOpenFailed is returned when a file cannot be opened.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileWriteFailed is returned when a file cannot be written.
	ErrFileWriteFailed = zerr.New("failed to write file")

	// ErrGlobFailed is returned when a glob pattern cannot be expanded.
	ErrGlobFailed = zerr.New("failed to expand glob")

	// ErrStoreReadFailed is returned when a cached artifact cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read cached artifact")

	// ErrStoreWriteFailed is returned when a cached artifact cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write cached artifact")

	// ErrCommandFailed is returned when an external tool exits with an error.
	ErrCommandFailed = zerr.New("command failed")

	// ErrServerFailed is returned when the development server stops unexpectedly.
	ErrServerFailed = zerr.New("development server failed")
)
