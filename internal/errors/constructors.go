package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *SidekickError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(field, reason string) *SidekickError {
	return New(CategoryConfig, SeverityFatal, "invalid configuration").
		WithContext("field", field).
		WithContext("reason", reason)
}

func ValidationFailed(field, reason string) *SidekickError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Shared-state errors

func StateError(path, operation string, cause error) *SidekickError {
	return Wrap(cause, CategoryState, SeverityError, "state operation failed").
		WithContext("path", path).
		WithContext("operation", operation)
}

// Hook protocol errors

func HookInputError(event string, cause error) *SidekickError {
	return Wrap(cause, CategoryHook, SeverityFatal, "hook input decode failed").
		WithContext("event", event)
}

// Session index errors

func SessionIndexError(operation string, cause error) *SidekickError {
	return Wrap(cause, CategorySession, SeverityError, "session index operation failed").
		WithContext("operation", operation)
}

// Git errors

func GitOpenError(repo string, cause error) *SidekickError {
	return Wrap(cause, CategoryGit, SeverityFatal, "repository open failed").
		WithContext("repository", repo)
}

func GitRefError(ref string, cause error) *SidekickError {
	return Wrap(cause, CategoryGit, SeverityFatal, "reference resolution failed").
		WithContext("ref", ref)
}

// Skill errors

func SkillError(skill, message string, cause error) *SidekickError {
	return Wrap(cause, CategorySkill, SeverityError, message).
		WithContext("skill", skill)
}

// Schedule errors

func ScheduleError(task string, cause error) *SidekickError {
	return WrapRetryable(cause, CategorySchedule, SeverityWarning, "scheduled task failed").
		WithContext("task", task)
}

// Internal errors

func InternalError(message string, cause error) *SidekickError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
