package websocket

import (
	"fmt"
	"strings"

	"github.com/fasttodo/fasttodo/internal/infrastructure/genai"
)

// ToolKind enumerates the tools exposed to the model. Dispatch is over this
// tagged kind, not raw name strings, so an unhandled tool is a compile-time
// problem rather than a silent no-op.
type ToolKind int

const (
	ToolGetTodos ToolKind = iota
	ToolCreateTodo
	ToolDeleteTodo
	ToolUpdateTodo
)

func (k ToolKind) String() string {
	switch k {
	case ToolGetTodos:
		return "get_todos"
	case ToolCreateTodo:
		return "create_todo"
	case ToolDeleteTodo:
		return "delete_todo"
	case ToolUpdateTodo:
		return "update_todo"
	}
	return "unknown"
}

// ParseToolKind maps a model-supplied tool name onto its kind.
func ParseToolKind(name string) (ToolKind, bool) {
	switch name {
	case "get_todos":
		return ToolGetTodos, true
	case "create_todo":
		return ToolCreateTodo, true
	case "delete_todo":
		return ToolDeleteTodo, true
	case "update_todo":
		return ToolUpdateTodo, true
	}
	return 0, false
}

// ToolDeclarations returns the function declarations advertised to the
// upstream model. Parameters are free-text fuzzy-match fields, never ids:
// the model cannot reliably produce ids from conversational context.
func ToolDeclarations() []genai.FunctionDeclaration {
	return []genai.FunctionDeclaration{
		{
			Name:        "get_todos",
			Description: "Get the current list of todo items.",
			Parameters:  genai.Schema{Type: "OBJECT"},
		},
		{
			Name:        "create_todo",
			Description: "Create a new todo item.",
			Parameters: genai.Schema{
				Type: "OBJECT",
				Properties: map[string]genai.Schema{
					"title":       {Type: "STRING", Description: "The title of the task"},
					"description": {Type: "STRING", Description: "The description of the task"},
					"priority":    {Type: "STRING", Description: "Priority: low, medium, or high"},
					"due_date":    {Type: "STRING", Description: "ISO 8601 date string for the due date"},
				},
				Required: []string{"title"},
			},
		},
		{
			Name:        "delete_todo",
			Description: "Delete a todo item by matching its title.",
			Parameters: genai.Schema{
				Type: "OBJECT",
				Properties: map[string]genai.Schema{
					"search_title": {Type: "STRING", Description: "Text to search for in the todo title"},
				},
				Required: []string{"search_title"},
			},
		},
		{
			Name:        "update_todo",
			Description: "Update an existing todo item found by title.",
			Parameters: genai.Schema{
				Type: "OBJECT",
				Properties: map[string]genai.Schema{
					"search_title":    {Type: "STRING", Description: "Text to search for to identify the task"},
					"new_title":       {Type: "STRING", Description: "The new title"},
					"new_description": {Type: "STRING", Description: "The new description"},
					"new_priority":    {Type: "STRING", Description: "Priority: low, medium, or high"},
					"new_due_date":    {Type: "STRING", Description: "ISO 8601 date string"},
				},
				Required: []string{"search_title"},
			},
		},
	}
}

// ClientAction tells the client UI to apply a side effect. The mirror is
// only updated by a later todos_update once the client has persisted it.
type ClientAction struct {
	Action string
	Data   map[string]any
}

// ExecuteTool interprets one tool call against the todo mirror. It never
// fails the session: every problem degrades to an error result the model
// can speak back to the user.
func ExecuteTool(kind ToolKind, args map[string]any, todos []TodoSnapshot) (map[string]any, *ClientAction) {
	switch kind {
	case ToolGetTodos:
		projected := make([]map[string]any, 0, len(todos))
		for _, t := range todos {
			projected = append(projected, map[string]any{
				"title":       t.Title,
				"priority":    t.Priority,
				"due_date":    t.DueDate,
				"description": t.Description,
			})
		}
		return map[string]any{"todos": projected}, nil

	case ToolCreateTodo:
		title := stringArg(args, "title")
		action := &ClientAction{
			Action: "create_todo",
			Data: map[string]any{
				"title":       title,
				"description": stringArg(args, "description"),
				"priority":    stringArgDefault(args, "priority", "medium"),
				"due_date":    args["due_date"],
			},
		}
		return successResult(fmt.Sprintf("Created task %q", title)), action

	case ToolDeleteTodo:
		match, errResult := matchOne(stringArg(args, "search_title"), todos)
		if errResult != nil {
			return errResult, nil
		}
		action := &ClientAction{
			Action: "delete_todo",
			Data:   map[string]any{"id": match.ID},
		}
		return successResult(fmt.Sprintf("Deleted task %q", match.Title)), action

	case ToolUpdateTodo:
		match, errResult := matchOne(stringArg(args, "search_title"), todos)
		if errResult != nil {
			return errResult, nil
		}
		action := &ClientAction{
			Action: "update_todo",
			Data: map[string]any{
				"id":          match.ID,
				"title":       fallback(stringArg(args, "new_title"), match.Title),
				"description": fallback(stringArg(args, "new_description"), match.Description),
				"priority":    fallback(stringArg(args, "new_priority"), match.Priority),
				"due_date":    fallbackAny(args["new_due_date"], match.DueDate),
			},
		}
		return successResult(fmt.Sprintf("Updated task %q", match.Title)), action
	}

	return errorResult("Unknown tool"), nil
}

// matchOne resolves a fuzzy query to exactly one todo by case-insensitive
// substring containment. Zero or multiple matches produce error results;
// the interpreter never guesses.
func matchOne(query string, todos []TodoSnapshot) (*TodoSnapshot, map[string]any) {
	needle := strings.ToLower(query)

	var matches []TodoSnapshot
	for _, t := range todos {
		if strings.Contains(strings.ToLower(t.Title), needle) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return nil, errorResult("No task found matching that name.")
	case 1:
		return &matches[0], nil
	default:
		titles := make([]string, len(matches))
		for i, t := range matches {
			titles[i] = t.Title
		}
		return nil, errorResult(fmt.Sprintf("Multiple tasks found: %s. Please be more specific.",
			strings.Join(titles, ", ")))
	}
}

func successResult(message string) map[string]any {
	return map[string]any{"status": "success", "message": message}
}

func errorResult(message string) map[string]any {
	return map[string]any{"status": "error", "message": message}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func stringArgDefault(args map[string]any, key, def string) string {
	if v := stringArg(args, key); v != "" {
		return v
	}
	return def
}

func fallback(value, existing string) string {
	if value != "" {
		return value
	}
	return existing
}

func fallbackAny(value, existing any) any {
	if s, ok := value.(string); ok && s != "" {
		return s
	}
	if value != nil {
		if _, ok := value.(string); !ok {
			return value
		}
	}
	return existing
}
