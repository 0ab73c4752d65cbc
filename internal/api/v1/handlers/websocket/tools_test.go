package websocket

import (
	"strings"
	"testing"
)

func sampleTodos() []TodoSnapshot {
	return []TodoSnapshot{
		{ID: "id-1", Title: "Buy Milk", Description: "two liters", Priority: "low"},
		{ID: "id-2", Title: "Walk the dog", Priority: "medium"},
		{ID: "id-3", Title: "Buy stamps", Priority: "high"},
	}
}

func TestParseToolKind(t *testing.T) {
	for _, name := range []string{"get_todos", "create_todo", "delete_todo", "update_todo"} {
		kind, ok := ParseToolKind(name)
		if !ok {
			t.Errorf("ParseToolKind(%q) not recognized", name)
		}
		if kind.String() != name {
			t.Errorf("Got %q, want %q", kind.String(), name)
		}
	}
	if _, ok := ParseToolKind("drop_database"); ok {
		t.Error("Unknown tool name should not parse")
	}
}

func TestExecuteToolGetTodos(t *testing.T) {
	result, action := ExecuteTool(ToolGetTodos, nil, sampleTodos())
	if action != nil {
		t.Error("get_todos should not produce a client action")
	}
	todos, ok := result["todos"].([]map[string]any)
	if !ok {
		t.Fatalf("Got result %v, want todos projection", result)
	}
	if len(todos) != 3 {
		t.Errorf("Got %d todos, want 3", len(todos))
	}
	if todos[0]["title"] != "Buy Milk" {
		t.Errorf("Got title %v, want Buy Milk", todos[0]["title"])
	}
}

func TestExecuteToolCreateTodo(t *testing.T) {
	t.Run("defaults fill missing fields", func(t *testing.T) {
		result, action := ExecuteTool(ToolCreateTodo, map[string]any{"title": "New task"}, nil)
		if result["status"] != "success" {
			t.Fatalf("Got result %v, want success", result)
		}
		if action == nil || action.Action != "create_todo" {
			t.Fatalf("Got action %+v, want create_todo", action)
		}
		if action.Data["title"] != "New task" {
			t.Errorf("Got title %v, want New task", action.Data["title"])
		}
		if action.Data["description"] != "" {
			t.Errorf("Got description %v, want empty", action.Data["description"])
		}
		if action.Data["priority"] != "medium" {
			t.Errorf("Got priority %v, want medium", action.Data["priority"])
		}
		if action.Data["due_date"] != nil {
			t.Errorf("Got due_date %v, want nil", action.Data["due_date"])
		}
	})

	t.Run("explicit fields pass through", func(t *testing.T) {
		_, action := ExecuteTool(ToolCreateTodo, map[string]any{
			"title":    "Pay rent",
			"priority": "high",
			"due_date": "2026-10-01",
		}, nil)
		if action.Data["priority"] != "high" {
			t.Errorf("Got priority %v, want high", action.Data["priority"])
		}
		if action.Data["due_date"] != "2026-10-01" {
			t.Errorf("Got due_date %v, want 2026-10-01", action.Data["due_date"])
		}
	})
}

func TestExecuteToolDeleteTodo(t *testing.T) {
	t.Run("case-insensitive substring match resolves by id", func(t *testing.T) {
		result, action := ExecuteTool(ToolDeleteTodo, map[string]any{"search_title": "milk"}, sampleTodos())
		if result["status"] != "success" {
			t.Fatalf("Got result %v, want success", result)
		}
		if action == nil || action.Action != "delete_todo" {
			t.Fatalf("Got action %+v, want delete_todo", action)
		}
		if action.Data["id"] != "id-1" {
			t.Errorf("Got id %v, want id-1", action.Data["id"])
		}
	})

	t.Run("zero matches is a speakable error, no action", func(t *testing.T) {
		result, action := ExecuteTool(ToolDeleteTodo, map[string]any{"search_title": "laundry"}, sampleTodos())
		if action != nil {
			t.Error("No action should be emitted when nothing matched")
		}
		if result["status"] != "error" {
			t.Fatalf("Got result %v, want error", result)
		}
		if result["message"] != "No task found matching that name." {
			t.Errorf("Got message %v", result["message"])
		}
	})

	t.Run("multiple matches list candidate titles, no action", func(t *testing.T) {
		result, action := ExecuteTool(ToolDeleteTodo, map[string]any{"search_title": "buy"}, sampleTodos())
		if action != nil {
			t.Error("No action should be emitted when the match is ambiguous")
		}
		msg, _ := result["message"].(string)
		if !strings.Contains(msg, "Buy Milk") || !strings.Contains(msg, "Buy stamps") {
			t.Errorf("Got message %q, want both candidate titles", msg)
		}
		if !strings.Contains(msg, "Please be more specific.") {
			t.Errorf("Got message %q, want disambiguation hint", msg)
		}
	})
}

func TestExecuteToolUpdateTodo(t *testing.T) {
	t.Run("omitted fields fall back to existing values", func(t *testing.T) {
		result, action := ExecuteTool(ToolUpdateTodo, map[string]any{
			"search_title": "dog",
			"new_priority": "high",
		}, sampleTodos())
		if result["status"] != "success" {
			t.Fatalf("Got result %v, want success", result)
		}
		if action.Data["id"] != "id-2" {
			t.Errorf("Got id %v, want id-2", action.Data["id"])
		}
		if action.Data["title"] != "Walk the dog" {
			t.Errorf("Got title %v, want existing title", action.Data["title"])
		}
		if action.Data["priority"] != "high" {
			t.Errorf("Got priority %v, want high", action.Data["priority"])
		}
	})

	t.Run("new values replace existing ones", func(t *testing.T) {
		_, action := ExecuteTool(ToolUpdateTodo, map[string]any{
			"search_title": "milk",
			"new_title":    "Buy oat milk",
			"new_due_date": "2026-09-05",
		}, sampleTodos())
		if action.Data["title"] != "Buy oat milk" {
			t.Errorf("Got title %v, want Buy oat milk", action.Data["title"])
		}
		if action.Data["due_date"] != "2026-09-05" {
			t.Errorf("Got due_date %v, want 2026-09-05", action.Data["due_date"])
		}
		if action.Data["description"] != "two liters" {
			t.Errorf("Got description %v, want existing description", action.Data["description"])
		}
	})

	t.Run("ambiguous match emits no action", func(t *testing.T) {
		result, action := ExecuteTool(ToolUpdateTodo, map[string]any{"search_title": "BUY"}, sampleTodos())
		if action != nil {
			t.Error("No action should be emitted when the match is ambiguous")
		}
		if result["status"] != "error" {
			t.Errorf("Got result %v, want error", result)
		}
	})
}

func TestToolDeclarations(t *testing.T) {
	decls := ToolDeclarations()
	if len(decls) != 4 {
		t.Fatalf("Got %d declarations, want 4", len(decls))
	}
	for _, d := range decls {
		if _, ok := ParseToolKind(d.Name); !ok {
			t.Errorf("Declared tool %q has no kind", d.Name)
		}
	}
}
