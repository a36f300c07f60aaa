package prompts

import "fmt"

// SQLActions lists the supported SQL assistant modes.
var SQLActions = []string{"generate", "explain", "optimize", "fix"}

// SQLAssist builds the system and user prompts for one SQL assistant call.
// Unknown actions fall back to explain.
func SQLAssist(action, query, schema, dialect string) (system, user string) {
	if dialect == "" {
		dialect = "PostgreSQL"
	}
	system = fmt.Sprintf("You are an expert %s database engineer. Answer precisely and include runnable SQL in a code block.", dialect)

	schemaBlock := ""
	if schema != "" {
		schemaBlock = fmt.Sprintf("\n\n**Schema:**\n%s", schema)
	}

	switch action {
	case "generate":
		user = fmt.Sprintf("Write a %s query for this request:%s\n\n**Request:** %s", dialect, schemaBlock, query)
	case "optimize":
		user = fmt.Sprintf("Optimize this %s query. Explain what changed and why it is faster.%s\n\n**Query:**\n%s", dialect, schemaBlock, query)
	case "fix":
		user = fmt.Sprintf("This %s query is broken. Find the problem and return a corrected version.%s\n\n**Query:**\n%s", dialect, schemaBlock, query)
	default:
		user = fmt.Sprintf("Explain what this %s query does, step by step.%s\n\n**Query:**\n%s", dialect, schemaBlock, query)
	}
	return system, user
}
