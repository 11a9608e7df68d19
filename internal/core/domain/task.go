package domain

// Task is a named build step with declared prerequisites.
// The action itself is resolved by name through ports.Executor.
type Task struct {
	Name         string
	Description  string
	Dependencies []string
}

// Command describes an external tool invocation.
type Command struct {
	Args []string
	Dir  string
	Env  map[string]string
}
