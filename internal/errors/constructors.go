package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *PipelineError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *PipelineError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Toolchain errors

func ProvisionError(tool string, cause error) *PipelineError {
	return Wrap(cause, CategoryToolchain, SeverityFatal, "required tool not available").
		WithContext("tool", tool)
}

// Build pipeline errors

func BuildFailed(entry string, cause error) *PipelineError {
	return Wrap(cause, CategoryBuild, SeverityFatal, "build failed").
		WithContext("entry", entry)
}

func ArtifactMissing(path string) *PipelineError {
	return New(CategoryBuild, SeverityFatal, "expected artifact not produced").
		WithContext("path", path)
}

func WorkspaceError(operation string, cause error) *PipelineError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "workspace operation failed").
		WithContext("operation", operation)
}

// Release errors

func PublishFailed(tag string, cause error) *PipelineError {
	return Wrap(cause, CategoryRelease, SeverityFatal, "artifact publish failed").
		WithContext("tag", tag)
}

func StaleRevision(built, head string) *PipelineError {
	return New(CategoryRelease, SeverityFatal, "artifact built from stale revision").
		WithContext("built_revision", built).
		WithContext("head_revision", head)
}

// Git errors

func GitError(operation string, cause error) *PipelineError {
	return Wrap(cause, CategoryGit, SeverityFatal, "git operation failed").
		WithContext("operation", operation)
}

// Internal errors

func InternalError(message string, cause error) *PipelineError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
